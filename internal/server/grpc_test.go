package server

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func dial(t *testing.T, s *grpc.Server) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go s.Serve(lis)
	t.Cleanup(s.Stop)
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNewGRPCServer_RegistersServices(t *testing.T) {
	s := NewGRPCServer(Deps{Reflection: true})
	info := s.GetServiceInfo()
	for _, name := range []string{"grpc.health.v1.Health", "grpc.reflection.v1.ServerReflection"} {
		if _, ok := info[name]; !ok {
			t.Errorf("service %q not registered; have %v", name, info)
		}
	}
}

func TestNewGRPCServer_NoReflectionByDefault(t *testing.T) {
	s := NewGRPCServer(Deps{})
	if _, ok := s.GetServiceInfo()["grpc.reflection.v1.ServerReflection"]; ok {
		t.Error("reflection should be opt-in")
	}
}

func TestHealthCheck_UsesProvidedServer(t *testing.T) {
	hs := health.NewServer()
	hs.SetServingStatus("queyk.device", healthpb.HealthCheckResponse_NOT_SERVING)
	conn := dial(t, NewGRPCServer(Deps{Health: hs}))

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "queyk.device"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall = %v, %v", resp.GetStatus(), err)
	}
}
