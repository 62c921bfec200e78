// Package health publishes readiness through the standard gRPC health service: the overall status
// follows the database and the "queyk.device" service follows the liveness monitor.
package health

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	devicedomain "github.com/project-queyk/queyk-backend/internal/device/domain"
	"github.com/project-queyk/queyk-backend/internal/logging"
)

// DeviceService is the health service name reporting the seismic device's liveness.
const DeviceService = "queyk.device"

const (
	defaultInterval    = 15 * time.Second
	defaultPingTimeout = 3 * time.Second
)

// Pinger checks database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DeviceStatus returns the liveness monitor's latest snapshot.
type DeviceStatus interface {
	Status() devicedomain.Status
}

// Reporter owns a grpc health.Server and keeps it current.
type Reporter struct {
	server   *health.Server
	pinger   Pinger
	device   DeviceStatus
	interval time.Duration
	logger   *slog.Logger
}

// NewReporter returns a Reporter. pinger or device may be nil; a nil pinger reports SERVING and a nil
// device leaves DeviceService UNKNOWN.
func NewReporter(pinger Pinger, device DeviceStatus, logger *slog.Logger) *Reporter {
	return &Reporter{
		server:   health.NewServer(),
		pinger:   pinger,
		device:   device,
		interval: defaultInterval,
		logger:   logging.OrDefault(logger).With("component", "health"),
	}
}

// Server returns the health server to register with grpc.
func (r *Reporter) Server() *health.Server { return r.server }

// Update checks once and sets both statuses.
func (r *Reporter) Update(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	if r.pinger != nil {
		pctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
		err := r.pinger.PingContext(pctx)
		cancel()
		if err != nil {
			r.logger.Warn("database ping failed", "error", err)
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	r.server.SetServingStatus("", overall)
	r.server.SetServingStatus(DeviceService, deviceStatus(r.device))
}

func deviceStatus(d DeviceStatus) healthpb.HealthCheckResponse_ServingStatus {
	if d == nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	s := d.Status()
	switch {
	case !s.Checked:
		return healthpb.HealthCheckResponse_UNKNOWN
	case s.Online:
		return healthpb.HealthCheckResponse_SERVING
	default:
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
}

// Run updates immediately and then every interval until ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	r.Update(ctx)
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Update(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (r *Reporter) Shutdown() {
	r.server.Shutdown()
}
