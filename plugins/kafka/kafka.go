package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/miladsoleymani/kafkaconsumer/broker"
	"github.com/miladsoleymani/kafkaconsumer/core"
)

func init() {
	broker.Register("kafka", func(cfg broker.Config, logger *slog.Logger) (core.Consumer, error) {
		return New(cfg, logger, optsFromConfig(cfg)...)
	})
}

// Consumer implements core.Consumer for Apache Kafka using segmentio/kafka-go.
//
//   - One kafka.Reader bound to the consumer group, created by Subscribe.
//   - Subscribe dials the brokers first so an unreachable cluster fails
//     before the read loop starts.
//   - Manual offset commit via Ack; not committing (Nack) causes redelivery.
//   - Close closes the reader, which leaves the consumer group.
type Consumer struct {
	cfg  broker.Config
	opts options
	log  *slog.Logger

	mu     sync.Mutex
	reader *kafka.Reader
	closed bool
}

// New creates a Kafka Consumer.
func New(cfg broker.Config, logger *slog.Logger, fns ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafkaconsumer/kafka: at least one broker address is required")
	}

	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	if opts.dialer == nil {
		opts.dialer = &kafka.Dialer{ClientID: cfg.ClientID, DualStack: true, Timeout: opts.dialTimeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Consumer{
		cfg:  cfg,
		opts: opts,
		log:  logger,
	}, nil
}

// Subscribe joins the consumer group for topic.
func (c *Consumer) Subscribe(ctx context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrSessionClosed
	}
	if c.reader != nil {
		return core.ErrAlreadyStarted
	}

	if c.opts.probe {
		if err := c.probe(ctx); err != nil {
			return err
		}
	}

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.cfg.Brokers,
		Topic:          topic,
		GroupID:        c.cfg.Group,
		MinBytes:       c.opts.minBytes,
		MaxBytes:       c.opts.maxBytes,
		MaxWait:        c.opts.maxWait,
		CommitInterval: c.opts.commitInterval,
		StartOffset:    startOffset(c.cfg.OffsetReset),
		Dialer:         c.opts.dialer,
		Logger:         kafka.LoggerFunc(c.logf(slog.LevelDebug)),
		ErrorLogger:    kafka.LoggerFunc(c.logf(slog.LevelWarn)),
	})
	c.log.Debug("reader created", "topic", topic, "group", c.cfg.Group, "offsetReset", c.cfg.OffsetReset)
	return nil
}

// probe dials the brokers in order and succeeds on the first reachable one.
// Each dial is bounded by the dial timeout, whatever dialer is configured.
func (c *Consumer) probe(ctx context.Context) error {
	var lastErr error
	for _, addr := range c.cfg.Brokers {
		conn, err := c.dial(ctx, addr)
		if err != nil {
			lastErr = fmt.Errorf("kafkaconsumer/kafka: dial %q: %w", addr, err)
			c.log.Debug("broker unreachable", "address", addr, "error", err)
			continue
		}
		_ = conn.Close()
		return nil
	}
	return lastErr
}

func (c *Consumer) dial(ctx context.Context, addr string) (*kafka.Conn, error) {
	if c.opts.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.dialTimeout)
		defer cancel()
	}
	return c.opts.dialer.DialContext(ctx, "tcp", addr)
}

// Next fetches the next message, blocking until one arrives or ctx is done.
func (c *Consumer) Next(ctx context.Context) (core.Message, error) {
	c.mu.Lock()
	r := c.reader
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, core.ErrSessionClosed
	}
	if r == nil {
		return nil, core.ErrNotSubscribed
	}

	raw, err := r.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("kafkaconsumer/kafka: fetch: %w", err)
	}
	return &message{raw: raw, reader: r, ctx: ctx}, nil
}

// Close closes the reader and leaves the group.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.reader == nil {
		return nil
	}
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("kafkaconsumer/kafka: close reader: %w", err)
	}
	return nil
}

func (c *Consumer) logf(level slog.Level) func(string, ...any) {
	return func(format string, args ...any) {
		c.log.Log(context.Background(), level, fmt.Sprintf(format, args...))
	}
}

func startOffset(reset broker.OffsetReset) int64 {
	if reset == broker.OffsetLatest {
		return kafka.LastOffset
	}
	return kafka.FirstOffset
}

// optsFromConfig extracts options from the broker.Config.Extra map.
func optsFromConfig(cfg broker.Config) []Option {
	if cfg.Extra == nil {
		return nil
	}
	var opts []Option
	if v, ok := cfg.Extra["min_bytes"].(int); ok {
		opts = append(opts, WithMinBytes(v))
	}
	if v, ok := cfg.Extra["max_bytes"].(int); ok {
		opts = append(opts, WithMaxBytes(v))
	}
	if v, ok := cfg.Extra["max_wait"].(time.Duration); ok {
		opts = append(opts, WithMaxWait(v))
	}
	if v, ok := cfg.Extra["dial_timeout"].(time.Duration); ok {
		opts = append(opts, WithDialTimeout(v))
	}
	if v, ok := cfg.Extra["probe"].(bool); ok {
		opts = append(opts, WithProbe(v))
	}
	return opts
}
