// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC health server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr is the address of the HTTP listener serving the realtime websocket at /ws.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or text.
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// DeviceCheckInterval is how often the liveness monitor polls (e.g. "60s").
	DeviceCheckInterval string `mapstructure:"DEVICE_CHECK_INTERVAL"`
	// DeviceOfflineThreshold is the silence after which the device counts as offline (e.g. "6m").
	DeviceOfflineThreshold string `mapstructure:"DEVICE_OFFLINE_THRESHOLD"`
	// DispatchTimeout bounds a whole notification fan-out (e.g. "30s").
	DispatchTimeout string `mapstructure:"DISPATCH_TIMEOUT"`
	// AlertTemplatesPath is an optional YAML file overriding the built-in alert texts; watched for changes.
	AlertTemplatesPath string `mapstructure:"ALERT_TEMPLATES_PATH"`

	// SMTP settings for the email channel. Email is disabled when SMTPUsername is empty.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFromName string `mapstructure:"SMTP_FROM_NAME"`

	// ExpoAccessToken is the optional bearer token for the Expo push service.
	ExpoAccessToken string `mapstructure:"EXPO_ACCESS_TOKEN"`
	// ExpoPushURL is the Expo push send endpoint.
	ExpoPushURL string `mapstructure:"EXPO_PUSH_URL"`

	// SMSLocalAPIKey enables the SMS channel when set.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for SMS Local.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS Local API base URL.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`

	// GeminiAPIKey enables generated alert text when set.
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	// GeminiModel is the model used for alert text.
	GeminiModel string `mapstructure:"GEMINI_MODEL"`
	// GeminiRequestsPerMinute caps generator calls; 0 disables the limit.
	GeminiRequestsPerMinute int `mapstructure:"GEMINI_REQUESTS_PER_MINUTE"`

	// KafkaBrokers is a comma-separated list of broker addresses. Empty disables the Kafka consumers and producer.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// ReadingsTopic carries sensor readings to ingest.
	ReadingsTopic string `mapstructure:"READINGS_KAFKA_TOPIC"`
	// AlertsTopic carries out-of-band earthquake triggers.
	AlertsTopic string `mapstructure:"ALERTS_KAFKA_TOPIC"`
	// TelemetryTopic carries domain telemetry events.
	TelemetryTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group for the server consumers and the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// Worker-only: Loki URL the telemetry worker pushes to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLP export. Empty endpoint keeps providers in-process.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

const (
	defaultCheckInterval    = 60 * time.Second
	defaultOfflineThreshold = 6 * time.Minute
	defaultDispatchTimeout  = 30 * time.Second
)

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DEVICE_CHECK_INTERVAL", "60s")
	v.SetDefault("DEVICE_OFFLINE_THRESHOLD", "6m")
	v.SetDefault("DISPATCH_TIMEOUT", "30s")
	v.SetDefault("ALERT_TEMPLATES_PATH", "")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM_NAME", "Queyk")
	v.SetDefault("EXPO_ACCESS_TOKEN", "")
	v.SetDefault("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("SMS_LOCAL_API_KEY", "")
	v.SetDefault("SMS_LOCAL_SENDER", "")
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://app.smslocal.in/api/smsapi")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash-lite")
	v.SetDefault("GEMINI_REQUESTS_PER_MINUTE", 15)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("READINGS_KAFKA_TOPIC", "queyk-readings")
	v.SetDefault("ALERTS_KAFKA_TOPIC", "queyk-earthquakes")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "queyk-telemetry")
	v.SetDefault("KAFKA_GROUP_ID", "queyk-backend")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "queyk-backend")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.SMTPPort < 1 || cfg.SMTPPort > 65535 {
		return nil, errors.New("config: SMTP_PORT must be between 1 and 65535")
	}
	if cfg.GeminiRequestsPerMinute < 0 {
		return nil, errors.New("config: GEMINI_REQUESTS_PER_MINUTE must not be negative")
	}

	return &cfg, nil
}

func parsePositive(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// CheckInterval parses DeviceCheckInterval. Returns 60s if unset or invalid.
func (c *Config) CheckInterval() time.Duration {
	return parsePositive(c.DeviceCheckInterval, defaultCheckInterval)
}

// OfflineThreshold parses DeviceOfflineThreshold. Returns 6m if unset or invalid.
func (c *Config) OfflineThreshold() time.Duration {
	return parsePositive(c.DeviceOfflineThreshold, defaultOfflineThreshold)
}

// DispatchTimeoutDuration parses DispatchTimeout. Returns 30s if unset or invalid.
func (c *Config) DispatchTimeoutDuration() time.Duration {
	return parsePositive(c.DispatchTimeout, defaultDispatchTimeout)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means Kafka is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EmailEnabled reports whether SMTP credentials are configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPUsername != "" && c.SMTPPassword != ""
}

// SMSEnabled reports whether the SMS channel is configured.
func (c *Config) SMSEnabled() bool {
	return c.SMSLocalAPIKey != ""
}
