// Worker consumes telemetry events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/project-queyk/queyk-backend/internal/config"
	"github.com/project-queyk/queyk-backend/internal/logging"
	"github.com/project-queyk/queyk-backend/internal/stream"
	"github.com/project-queyk/queyk-backend/internal/telemetry/loki"
)

const pushTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}

	// The worker's own logs stay local; shipping them through the pipeline it drains would loop.
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, nil)

	groupID := cfg.KafkaGroupID + "-telemetry-worker"
	client := loki.NewClient(cfg.LokiURL, nil)
	consumer := stream.NewConsumer("telemetry", stream.NewReader(brokers, cfg.TelemetryTopic, groupID),
		client.PushEventJSON,
		stream.WithHandlerTimeout(pushTimeout),
		stream.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started", "topic", cfg.TelemetryTopic, "group", groupID, "loki", cfg.LokiURL)
	if err := consumer.Run(ctx); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
