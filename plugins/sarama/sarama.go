package sarama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"github.com/miladsoleymani/kafkaconsumer/broker"
	"github.com/miladsoleymani/kafkaconsumer/core"
)

func init() {
	broker.Register("sarama", func(cfg broker.Config, logger *slog.Logger) (core.Consumer, error) {
		return New(cfg, logger, optsFromConfig(cfg)...)
	})
}

// Option configures the sarama consumer.
type Option func(*options)

type options struct {
	version sarama.KafkaVersion
	tune    func(*sarama.Config)
}

func defaults() options {
	return options{version: sarama.V2_8_0_0}
}

// WithVersion sets the Kafka protocol version sarama negotiates with.
func WithVersion(v sarama.KafkaVersion) Option {
	return func(o *options) { o.version = v }
}

// WithConfig lets callers adjust the sarama.Config before the group is created.
func WithConfig(fn func(*sarama.Config)) Option {
	return func(o *options) { o.tune = fn }
}

// Consumer implements core.Consumer on an IBM/sarama ConsumerGroup.
//
// The group session runs in its own goroutine; claimed messages are handed
// to Next one at a time through an unbuffered channel. Ack marks the message
// and sarama commits marked offsets in the background.
type Consumer struct {
	group sarama.ConsumerGroup
	log   *slog.Logger

	msgs chan *message

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	failure error
	closed  bool
}

// New creates the consumer group; it connects to the brokers immediately.
func New(cfg broker.Config, logger *slog.Logger, fns ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafkaconsumer/sarama: at least one broker address is required")
	}
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.Group, saramaConfig(cfg, opts))
	if err != nil {
		return nil, fmt.Errorf("kafkaconsumer/sarama: create consumer group %q: %w", cfg.Group, err)
	}

	return newConsumer(group, logger), nil
}

func newConsumer(group sarama.ConsumerGroup, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Consumer{
		group: group,
		log:   logger,
		msgs:  make(chan *message),
	}
	go c.drainErrors()
	return c
}

func saramaConfig(cfg broker.Config, opts options) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = opts.version
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.Initial = initialOffset(cfg.OffsetReset)
	if opts.tune != nil {
		opts.tune(sc)
	}
	return sc
}

func initialOffset(reset broker.OffsetReset) int64 {
	if reset == broker.OffsetLatest {
		return sarama.OffsetNewest
	}
	return sarama.OffsetOldest
}

// Subscribe starts the group session loop for topic.
func (c *Consumer) Subscribe(_ context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrSessionClosed
	}
	if c.done != nil {
		return core.ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx, topic)
	return nil
}

// run re-enters Consume after every rebalance until the group is closed.
// A Consume failure is recorded before done is closed.
func (c *Consumer) run(ctx context.Context, topic string) {
	defer close(c.done)
	h := &handler{msgs: c.msgs}
	for {
		if err := c.group.Consume(ctx, []string{topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || ctx.Err() != nil {
				return
			}
			c.mu.Lock()
			c.failure = err
			c.mu.Unlock()
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Consumer) drainErrors() {
	for err := range c.group.Errors() {
		c.log.Warn("consumer group error", "error", err)
	}
}

// Next waits for the next claimed message.
func (c *Consumer) Next(ctx context.Context) (core.Message, error) {
	c.mu.Lock()
	done, closed := c.done, c.closed
	c.mu.Unlock()
	if closed {
		return nil, core.ErrSessionClosed
	}
	if done == nil {
		return nil, core.ErrNotSubscribed
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m := <-c.msgs:
		return m, nil
	case <-done:
		c.mu.Lock()
		failure := c.failure
		c.mu.Unlock()
		if failure != nil {
			return nil, fmt.Errorf("kafkaconsumer/sarama: consume: %w", failure)
		}
		return nil, core.ErrSessionClosed
	}
}

// Close stops the session loop and leaves the group.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := c.group.Close()
	if done != nil {
		<-done
	}
	if err != nil {
		return fmt.Errorf("kafkaconsumer/sarama: close: %w", err)
	}
	return nil
}

// handler implements sarama.ConsumerGroupHandler.
type handler struct {
	msgs chan<- *message
}

func (h *handler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *handler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *handler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case raw, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			select {
			case h.msgs <- &message{raw: raw, sess: sess}:
			case <-sess.Context().Done():
				return nil
			}
		case <-sess.Context().Done():
			return nil
		}
	}
}

func optsFromConfig(cfg broker.Config) []Option {
	if cfg.Extra == nil {
		return nil
	}
	var opts []Option
	if v, ok := cfg.Extra["kafka_version"].(string); ok {
		if ver, err := sarama.ParseKafkaVersion(v); err == nil {
			opts = append(opts, WithVersion(ver))
		}
	}
	return opts
}
