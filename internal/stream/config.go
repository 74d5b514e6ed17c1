// Package stream consumes sales transaction events from Kafka and
// writes them into the warehouse fact table.
package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/salescube-io/salescube/internal/config"
)

// Sentinel errors for configuration validation.
var (
	ErrNoBrokers    = errors.New("at least one Kafka broker is required")
	ErrTopicEmpty   = errors.New("Kafka topic cannot be empty")
	ErrGroupIDEmpty = errors.New("Kafka consumer group ID cannot be empty")
)

// Config holds the Kafka consumer settings.
type Config struct {
	Brokers        []string
	Topic          string
	GroupID        string
	MinBytes       int
	MaxBytes       int
	CommitInterval time.Duration
}

// LoadConfig reads the consumer configuration from environment
// variables, applying defaults suitable for local development.
func LoadConfig() *Config {
	return &Config{
		Brokers:        config.ParseCommaSeparatedList(config.GetEnvStr("SALESCUBE_KAFKA_BROKERS", "localhost:9092")),
		Topic:          config.GetEnvStr("SALESCUBE_KAFKA_TOPIC", "sales.transactions"),
		GroupID:        config.GetEnvStr("SALESCUBE_KAFKA_GROUP", "salescube-ingester"),
		MinBytes:       config.GetEnvInt("SALESCUBE_KAFKA_MIN_BYTES", 1),
		MaxBytes:       config.GetEnvInt("SALESCUBE_KAFKA_MAX_BYTES", 10e6),
		CommitInterval: config.GetEnvDuration("SALESCUBE_KAFKA_COMMIT_INTERVAL", 0),
	}
}

// Validate checks that the configuration can open a reader.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}

	if c.Topic == "" {
		return ErrTopicEmpty
	}

	if c.GroupID == "" {
		return ErrGroupIDEmpty
	}

	return nil
}

// String returns a loggable representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Brokers: %v, Topic: %s, GroupID: %s}", c.Brokers, c.Topic, c.GroupID)
}
