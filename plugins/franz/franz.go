package franz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/miladsoleymani/kafkaconsumer/broker"
	"github.com/miladsoleymani/kafkaconsumer/core"
)

func init() {
	broker.Register("franz", func(cfg broker.Config, logger *slog.Logger) (core.Consumer, error) {
		return New(cfg, logger, optsFromConfig(cfg)...)
	})
}

// Option configures the franz-go consumer.
type Option func(*options)

type options struct {
	extra []kgo.Opt
	ping  bool
}

func defaults() options {
	return options{ping: true}
}

// WithClientOpts appends raw kgo options, applied after the defaults.
func WithClientOpts(opts ...kgo.Opt) Option {
	return func(o *options) { o.extra = append(o.extra, opts...) }
}

// WithPing controls the broker reachability check done by Subscribe.
func WithPing(enabled bool) Option {
	return func(o *options) { o.ping = enabled }
}

// Consumer implements core.Consumer on a franz-go group client.
//
// Auto-commit is disabled; Ack commits the record. Records of one poll are
// buffered and handed out one at a time. Close leaves the group.
type Consumer struct {
	cfg  broker.Config
	opts options
	log  *slog.Logger

	mu      sync.Mutex
	client  *kgo.Client
	pending []*kgo.Record
	closed  bool
}

// New validates the configuration; the client is created by Subscribe.
func New(cfg broker.Config, logger *slog.Logger, fns ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafkaconsumer/franz: at least one broker address is required")
	}
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Consumer{cfg: cfg, opts: opts, log: logger}, nil
}

func (c *Consumer) clientOpts(topic string) []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(c.cfg.Brokers...),
		kgo.ConsumerGroup(c.cfg.Group),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(resetOffset(c.cfg.OffsetReset)),
		kgo.DisableAutoCommit(),
	}
	if c.cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(c.cfg.ClientID))
	}
	return append(opts, c.opts.extra...)
}

func resetOffset(reset broker.OffsetReset) kgo.Offset {
	if reset == broker.OffsetLatest {
		return kgo.NewOffset().AtEnd()
	}
	return kgo.NewOffset().AtStart()
}

// Subscribe creates the group client for topic and pings the cluster.
func (c *Consumer) Subscribe(ctx context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrSessionClosed
	}
	if c.client != nil {
		return core.ErrAlreadyStarted
	}

	client, err := kgo.NewClient(c.clientOpts(topic)...)
	if err != nil {
		return fmt.Errorf("kafkaconsumer/franz: create client: %w", err)
	}
	if c.opts.ping {
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return fmt.Errorf("kafkaconsumer/franz: ping: %w", err)
		}
	}
	c.client = client
	c.log.Debug("franz client ready", "topic", topic, "group", c.cfg.Group)
	return nil
}

// Next returns the next buffered record, polling when the buffer is empty.
func (c *Consumer) Next(ctx context.Context) (core.Message, error) {
	c.mu.Lock()
	client, closed := c.client, c.closed
	if !closed && len(c.pending) > 0 {
		rec := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()
		return &message{raw: rec, client: client, ctx: ctx}, nil
	}
	c.mu.Unlock()
	if closed {
		return nil, core.ErrSessionClosed
	}
	if client == nil {
		return nil, core.ErrNotSubscribed
	}

	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if fetches.IsClientClosed() {
			return nil, core.ErrSessionClosed
		}
		if err := firstError(fetches); err != nil {
			return nil, err
		}

		records := fetches.Records()
		if len(records) == 0 {
			continue
		}
		c.mu.Lock()
		c.pending = append(c.pending, records[1:]...)
		c.mu.Unlock()
		return &message{raw: records[0], client: client, ctx: ctx}, nil
	}
}

func firstError(fetches kgo.Fetches) error {
	for _, fe := range fetches.Errors() {
		if errors.Is(fe.Err, context.Canceled) {
			continue
		}
		return fmt.Errorf("kafkaconsumer/franz: fetch %s[%d]: %w", fe.Topic, fe.Partition, fe.Err)
	}
	return nil
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.pending = nil
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

func optsFromConfig(cfg broker.Config) []Option {
	if cfg.Extra == nil {
		return nil
	}
	var opts []Option
	if v, ok := cfg.Extra["ping"].(bool); ok {
		opts = append(opts, WithPing(v))
	}
	return opts
}
