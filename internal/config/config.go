package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Frame dialects spoken by the deployed controllers.
const (
	FormatViking = "viking"
	FormatMetis  = "metis"
)

const maxBatchSize = 1000

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Telemetry decoding configuration.
	TelemetryFormat  string
	TelemetryCentury int
	PlatformFile     string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := parseDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	century, err := parseCentury()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "raw-buoy-frames"),
		KafkaSinkTopic:     envOrDefault("KAFKA_SINK_TOPIC", "decoded-buoy-telemetry"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "buoy-telemetry-etl"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		TelemetryFormat:  envOrDefault("TELEMETRY_FORMAT", FormatViking),
		TelemetryCentury: century,
		PlatformFile:     os.Getenv("PLATFORM_FILE"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.TelemetryFormat != FormatViking && cfg.TelemetryFormat != FormatMetis {
		return nil, fmt.Errorf("TELEMETRY_FORMAT must be %q or %q", FormatViking, FormatMetis)
	}

	return cfg, nil
}

// envOrDefault returns the environment variable's value, or def when unset.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBatchSize() (int, error) {
	n, err := strconv.Atoi(envOrDefault("BATCH_SIZE", "50"))
	if err != nil || n <= 0 || n > maxBatchSize {
		return 0, fmt.Errorf("BATCH_SIZE must be between 1 and %d", maxBatchSize)
	}
	return n, nil
}

// parseCentury reads the century hint used to expand the Viking controller's
// two-digit years. Buoys deployed today report 21st-century dates, hence the
// default.
func parseCentury() (int, error) {
	n, err := strconv.Atoi(envOrDefault("TELEMETRY_CENTURY", "21"))
	if err != nil || n <= 0 {
		return 0, errors.New("invalid TELEMETRY_CENTURY")
	}
	return n, nil
}
