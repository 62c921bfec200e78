package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"

	"github.com/project-queyk/queyk-backend/internal/config"
	"github.com/project-queyk/queyk-backend/internal/db"
	"github.com/project-queyk/queyk-backend/internal/device/monitor"
	earthquakerepo "github.com/project-queyk/queyk-backend/internal/earthquake/repository"
	earthquakesvc "github.com/project-queyk/queyk-backend/internal/earthquake/service"
	"github.com/project-queyk/queyk-backend/internal/health"
	"github.com/project-queyk/queyk-backend/internal/logging"
	"github.com/project-queyk/queyk-backend/internal/notification/dispatcher"
	"github.com/project-queyk/queyk-backend/internal/notification/email"
	"github.com/project-queyk/queyk-backend/internal/notification/push"
	notifyrealtime "github.com/project-queyk/queyk-backend/internal/notification/realtime"
	"github.com/project-queyk/queyk-backend/internal/notification/sms"
	"github.com/project-queyk/queyk-backend/internal/notification/templates"
	readingrepo "github.com/project-queyk/queyk-backend/internal/reading/repository"
	readingsvc "github.com/project-queyk/queyk-backend/internal/reading/service"
	"github.com/project-queyk/queyk-backend/internal/reading/validate"
	"github.com/project-queyk/queyk-backend/internal/realtime"
	"github.com/project-queyk/queyk-backend/internal/server"
	"github.com/project-queyk/queyk-backend/internal/stream"
	"github.com/project-queyk/queyk-backend/internal/telemetry"
	otelsetup "github.com/project-queyk/queyk-backend/internal/telemetry/otel"
	"github.com/project-queyk/queyk-backend/internal/telemetry/producer"
	"github.com/project-queyk/queyk-backend/internal/textgen"
	userrepo "github.com/project-queyk/queyk-backend/internal/user/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or export DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTelEndpoint, cfg.OTelServiceName, cfg.OTelInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, providers.LoggerProvider)
	slog.SetDefault(logger)

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	metrics, err := otelsetup.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		logger.Error("metrics setup failed", "error", err)
		os.Exit(1)
	}

	brokers := cfg.KafkaBrokersList()
	emitters := telemetry.Multi{otelsetup.NewEventEmitter(providers.LoggerProvider)}
	if len(brokers) > 0 {
		events := producer.NewKafkaProducer(brokers, cfg.TelemetryTopic)
		defer events.Close()
		emitters = append(emitters, events)
	}
	var emitter telemetry.EventEmitter = emitters

	tpl, err := templates.Open(cfg.AlertTemplatesPath)
	if err != nil {
		logger.Error("alert templates load failed", "path", cfg.AlertTemplatesPath, "error", err)
		os.Exit(1)
	}

	users := userrepo.NewPostgresRepository(conn)
	readings := readingrepo.NewPostgresRepository(conn)
	earthquakes := earthquakerepo.NewPostgresRepository(conn)

	hub := realtime.NewHub(logger)

	channels := []dispatcher.Channel{
		push.NewChannel(push.NewClient(cfg.ExpoPushURL, cfg.ExpoAccessToken, nil), users, logger),
		notifyrealtime.NewChannel(hub),
	}
	if cfg.EmailEnabled() {
		sender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			FromName: cfg.SMTPFromName,
		})
		if err != nil {
			logger.Error("email channel setup failed", "error", err)
			os.Exit(1)
		}
		channels = append(channels, email.NewChannel(sender, users, tpl))
	} else {
		logger.Warn("email channel disabled: SMTP credentials not set")
	}
	if cfg.SMSEnabled() {
		client := sms.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender)
		channels = append(channels, sms.NewChannel(client, users))
	}

	dispatchOpts := []dispatcher.Option{
		dispatcher.WithTimeout(cfg.DispatchTimeoutDuration()),
		dispatcher.WithRecorder(metrics),
		dispatcher.WithEmitter(emitter),
		dispatcher.WithLogger(logger),
	}
	if cfg.GeminiAPIKey != "" {
		gen, err := textgen.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiRequestsPerMinute)
		if err != nil {
			logger.Warn("text generator unavailable, using canned alert text", "error", err)
		} else {
			dispatchOpts = append(dispatchOpts, dispatcher.WithGenerator(gen))
		}
	}
	notifier := dispatcher.New(tpl, channels, dispatchOpts...)

	validator := validate.New()
	readingService := readingsvc.NewService(readings, validator,
		readingsvc.WithBroadcaster(hub),
		readingsvc.WithRecorder(metrics),
		readingsvc.WithEmitter(emitter),
		readingsvc.WithLogger(logger),
	)
	earthquakeService := earthquakesvc.NewService(earthquakes, notifier, validator,
		earthquakesvc.WithEmitter(emitter),
		earthquakesvc.WithLogger(logger),
	)

	threshold := cfg.OfflineThreshold()
	mon := monitor.New(readings, monitor.NewDispatchAlerter(notifier, tpl, threshold, nil),
		monitor.WithInterval(cfg.CheckInterval()),
		monitor.WithThreshold(threshold),
		monitor.WithRecorder(metrics),
		monitor.WithEmitter(emitter),
		monitor.WithLogger(logger),
	)
	if err := metrics.ObserveDeviceOnline(mon.Online); err != nil {
		logger.Warn("device gauge registration failed", "error", err)
	}

	reporter := health.NewReporter(conn, mon, logger)

	grpcServer := server.NewGRPCServer(server.Deps{
		Health:     reporter.Server(),
		Emitter:    emitter,
		Logger:     logger,
		Reflection: cfg.Env != "production",
	})
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.GRPCAddr, "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	var wg sync.WaitGroup
	wg.Go(func() { hub.Run(ctx) })
	wg.Go(func() { mon.Run(ctx) })
	wg.Go(func() { reporter.Run(ctx) })
	if cfg.AlertTemplatesPath != "" {
		wg.Go(func() {
			if err := templates.Watch(ctx, cfg.AlertTemplatesPath, tpl, logger); err != nil {
				logger.Warn("alert template watcher stopped", "error", err)
			}
		})
	}
	if len(brokers) > 0 {
		consumers := []*stream.Consumer{
			stream.NewConsumer("readings", stream.NewReader(brokers, cfg.ReadingsTopic, cfg.KafkaGroupID),
				readingService.HandleMessage, stream.WithLogger(logger)),
			stream.NewConsumer("earthquakes", stream.NewReader(brokers, cfg.AlertsTopic, cfg.KafkaGroupID),
				earthquakeService.HandleMessage, stream.WithLogger(logger)),
		}
		for _, c := range consumers {
			wg.Go(func() {
				if err := c.Run(ctx); err != nil {
					logger.Error("consumer stopped", "error", err)
				}
			})
		}
	} else {
		logger.Warn("KAFKA_BROKERS not set; readings and earthquake triggers are not consumed")
	}

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC serve failed", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("realtime server listening", "addr", cfg.HTTPAddr, "path", "/ws")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	reporter.Shutdown()
	grpcServer.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", "error", err)
	}
	wg.Wait()

	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
