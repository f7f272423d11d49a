package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/miladsoleymani/kafkaconsumer/broker"
	"github.com/miladsoleymani/kafkaconsumer/core"
)

func init() {
	broker.Register("nats", func(cfg broker.Config, logger *slog.Logger) (core.Consumer, error) {
		return New(cfg, logger, optsFromConfig(cfg)...)
	})
}

// Consumer implements core.Consumer on a NATS JetStream durable consumer.
//
// The topic is used as the subject; a stream named after it is created or
// updated on Subscribe. The consumer group becomes the durable name so that
// restarts resume where the previous run stopped acking.
type Consumer struct {
	conn *nats.Conn
	js   jetstream.JetStream
	cfg  broker.Config
	opts options
	log  *slog.Logger

	mu     sync.Mutex
	iter   jetstream.MessagesContext
	closed bool
}

// New connects to the servers listed in cfg.Brokers.
func New(cfg broker.Config, logger *slog.Logger, fns ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafkaconsumer/nats: at least one server URL is required")
	}
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	url := strings.Join(cfg.Brokers, ",")
	nc, err := nats.Connect(url, nats.Name(cfg.ClientID), nats.Timeout(opts.connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("kafkaconsumer/nats: connect to %q: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("kafkaconsumer/nats: init jetstream: %w", err)
	}

	return &Consumer{conn: nc, js: js, cfg: cfg, opts: opts, log: logger}, nil
}

// Subscribe ensures the stream and the durable consumer exist and starts
// pulling messages.
func (c *Consumer) Subscribe(ctx context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrSessionClosed
	}
	if c.iter != nil {
		return core.ErrAlreadyStarted
	}

	streamName := sanitizeName(topic)
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{topic},
		MaxMsgs:   c.opts.maxMsgs,
		MaxBytes:  c.opts.maxBytes,
		MaxAge:    c.opts.maxAge,
		Replicas:  c.opts.replicas,
		Retention: c.opts.retention,
		Storage:   c.opts.storage,
	})
	if err != nil {
		return fmt.Errorf("kafkaconsumer/nats: create stream %q: %w", streamName, err)
	}

	durable := sanitizeName(c.cfg.Group)
	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.opts.ackWait,
		MaxDeliver:    c.opts.maxDeliver,
		DeliverPolicy: deliverPolicy(c.cfg.OffsetReset),
	})
	if err != nil {
		return fmt.Errorf("kafkaconsumer/nats: create consumer %q: %w", durable, err)
	}

	iter, err := cons.Messages()
	if err != nil {
		return fmt.Errorf("kafkaconsumer/nats: start consume on %q: %w", durable, err)
	}
	c.iter = iter
	c.log.Debug("jetstream consumer ready", "stream", streamName, "durable", durable)
	return nil
}

// Next blocks on the message iterator. A cancelled ctx stops the iterator.
func (c *Consumer) Next(ctx context.Context) (core.Message, error) {
	c.mu.Lock()
	iter, closed := c.iter, c.closed
	c.mu.Unlock()
	if closed {
		return nil, core.ErrSessionClosed
	}
	if iter == nil {
		return nil, core.ErrNotSubscribed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, iter.Stop)
	defer stop()

	msg, err := iter.Next()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, jetstream.ErrMsgIteratorClosed) {
			return nil, core.ErrSessionClosed
		}
		return nil, fmt.Errorf("kafkaconsumer/nats: next: %w", err)
	}
	return &message{msg: msg}, nil
}

// Close stops the iterator and closes the connection.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.iter != nil {
		c.iter.Stop()
	}
	c.conn.Close()
	return nil
}

func deliverPolicy(reset broker.OffsetReset) jetstream.DeliverPolicy {
	if reset == broker.OffsetLatest {
		return jetstream.DeliverNewPolicy
	}
	return jetstream.DeliverAllPolicy
}

// sanitizeName converts a subject or group to a valid stream or durable name.
func sanitizeName(s string) string {
	buf := make([]byte, len(s))
	for i := range len(s) {
		c := s[i]
		if c == '.' || c == '*' || c == '>' || c == ' ' {
			buf[i] = '-'
		} else {
			buf[i] = c
		}
	}
	return string(buf)
}

func optsFromConfig(cfg broker.Config) []Option {
	if cfg.Extra == nil {
		return nil
	}
	var opts []Option
	if v, ok := cfg.Extra["max_deliver"].(int); ok {
		opts = append(opts, WithMaxDeliver(v))
	}
	if v, ok := cfg.Extra["replicas"].(int); ok {
		opts = append(opts, WithReplicas(v))
	}
	return opts
}
