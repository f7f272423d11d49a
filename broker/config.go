package broker

import (
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// OffsetReset selects where a consumer group without a committed position
// starts reading.
type OffsetReset string

const (
	// OffsetEarliest starts from the oldest retained message.
	OffsetEarliest OffsetReset = "earliest"

	// OffsetLatest starts from messages produced after the group joined.
	OffsetLatest OffsetReset = "latest"
)

// Config holds broker-agnostic configuration.
// Driver plugins extract the fields they need.
type Config struct {
	// Brokers is a list of broker addresses (e.g., "localhost:9092").
	Brokers []string `validate:"required,min=1,dive,required"`

	// Topic is the single topic the consumer subscribes to.
	Topic string `validate:"required"`

	// Group is the consumer group ID, derived from Topic by NewConfig.
	Group string `validate:"required"`

	// OffsetReset applies when the group has no committed position.
	OffsetReset OffsetReset `default:"earliest" validate:"oneof=earliest latest"`

	// ClientID identifies this process to the brokers.
	ClientID string

	// Extra holds plugin-specific configuration.
	Extra map[string]any
}

// GroupID derives the consumer group for topic.
func GroupID(topic string) string {
	return topic + "-group-0"
}

// NewConfig builds a validated Config from a broker address (a single
// address or a comma-separated list) and a topic.
func NewConfig(address, topic string) (Config, error) {
	cfg := Config{
		Brokers:  splitAddress(address),
		Topic:    topic,
		Group:    GroupID(topic),
		ClientID: "kafkaconsumer-" + uuid.NewString(),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate applies defaults and checks the configuration.
func (c *Config) Validate() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("kafkaconsumer: config defaults: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("kafkaconsumer: invalid config: %w", err)
	}
	return nil
}

func splitAddress(address string) []string {
	var out []string
	for _, a := range strings.Split(address, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
