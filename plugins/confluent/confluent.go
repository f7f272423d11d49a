package confluent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/miladsoleymani/kafkaconsumer/broker"
	"github.com/miladsoleymani/kafkaconsumer/core"
)

func init() {
	broker.Register("confluent", func(cfg broker.Config, logger *slog.Logger) (core.Consumer, error) {
		return New(cfg, logger, optsFromConfig(cfg)...)
	})
}

// Option configures the confluent consumer.
type Option func(*options)

type options struct {
	pollInterval   time.Duration
	sessionTimeout time.Duration
	overrides      kafka.ConfigMap
}

func defaults() options {
	return options{
		pollInterval:   100 * time.Millisecond,
		sessionTimeout: 45 * time.Second,
	}
}

// WithPollInterval sets how long a single poll waits before the context is checked again.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithSessionTimeout sets the group session timeout.
func WithSessionTimeout(d time.Duration) Option {
	return func(o *options) { o.sessionTimeout = d }
}

// WithConfigValue sets a raw librdkafka property, applied last.
func WithConfigValue(key string, value kafka.ConfigValue) Option {
	return func(o *options) {
		if o.overrides == nil {
			o.overrides = kafka.ConfigMap{}
		}
		o.overrides[key] = value
	}
}

// Consumer implements core.Consumer on confluent-kafka-go (librdkafka).
//
// Auto-commit is disabled; Ack commits the message offset synchronously.
// Close leaves the consumer group.
type Consumer struct {
	c    *kafka.Consumer
	opts options
	log  *slog.Logger

	mu         sync.Mutex
	subscribed bool
	closed     bool
}

// New creates the underlying librdkafka consumer. Invalid properties fail here.
func New(cfg broker.Config, logger *slog.Logger, fns ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafkaconsumer/confluent: at least one broker address is required")
	}
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c, err := kafka.NewConsumer(configMap(cfg, opts))
	if err != nil {
		return nil, fmt.Errorf("kafkaconsumer/confluent: create consumer: %w", err)
	}
	return &Consumer{c: c, opts: opts, log: logger}, nil
}

func configMap(cfg broker.Config, opts options) *kafka.ConfigMap {
	cm := kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(cfg.Brokers, ","),
		"group.id":           cfg.Group,
		"auto.offset.reset":  string(cfg.OffsetReset),
		"enable.auto.commit": false,
		"session.timeout.ms": int(opts.sessionTimeout / time.Millisecond),
	}
	if cfg.ClientID != "" {
		cm["client.id"] = cfg.ClientID
	}
	for k, v := range opts.overrides {
		cm[k] = v
	}
	return &cm
}

// Subscribe subscribes to topic; partitions are assigned by the group.
func (c *Consumer) Subscribe(_ context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrSessionClosed
	}
	if c.subscribed {
		return core.ErrAlreadyStarted
	}
	if err := c.c.Subscribe(topic, nil); err != nil {
		return fmt.Errorf("kafkaconsumer/confluent: subscribe %q: %w", topic, err)
	}
	c.subscribed = true
	return nil
}

// Next polls until a message arrives, ctx is done or a fatal error occurs.
// Non-fatal errors are logged; librdkafka recovers from them on its own.
func (c *Consumer) Next(ctx context.Context) (core.Message, error) {
	c.mu.Lock()
	subscribed, closed := c.subscribed, c.closed
	c.mu.Unlock()
	if closed {
		return nil, core.ErrSessionClosed
	}
	if !subscribed {
		return nil, core.ErrNotSubscribed
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := c.c.ReadMessage(c.opts.pollInterval)
		if err == nil {
			return &message{raw: msg, consumer: c.c}, nil
		}

		var kerr kafka.Error
		if !errors.As(err, &kerr) {
			return nil, fmt.Errorf("kafkaconsumer/confluent: read: %w", err)
		}
		if kerr.IsTimeout() {
			continue
		}
		if kerr.IsFatal() || kerr.Code() == kafka.ErrAllBrokersDown {
			return nil, fmt.Errorf("kafkaconsumer/confluent: read: %w", kerr)
		}
		c.log.Warn("transient consumer error", "code", kerr.Code(), "error", kerr)
	}
}

// Close commits nothing further and leaves the group.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.c.Close(); err != nil {
		return fmt.Errorf("kafkaconsumer/confluent: close: %w", err)
	}
	return nil
}

func optsFromConfig(cfg broker.Config) []Option {
	if cfg.Extra == nil {
		return nil
	}
	var opts []Option
	if v, ok := cfg.Extra["poll_interval"].(time.Duration); ok {
		opts = append(opts, WithPollInterval(v))
	}
	if v, ok := cfg.Extra["session_timeout"].(time.Duration); ok {
		opts = append(opts, WithSessionTimeout(v))
	}
	if raw, ok := cfg.Extra["librdkafka"].(map[string]string); ok {
		for k, v := range raw {
			opts = append(opts, WithConfigValue(k, v))
		}
	}
	return opts
}
