package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"

	"github.com/miladsoleymani/kafkaconsumer/broker"
	"github.com/miladsoleymani/kafkaconsumer/core"
)

func init() {
	broker.Register("rabbitmq", func(cfg broker.Config, logger *slog.Logger) (core.Consumer, error) {
		return New(cfg, logger, optsFromConfig(cfg)...)
	})
}

// Consumer implements core.Consumer for RabbitMQ using amqp091-go.
//
// The topic names a durable queue; the consumer group is used as the
// consumer tag. Deliveries are acked manually. Offset reset has no
// equivalent and is ignored.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	cfg  broker.Config
	opts options
	log  *slog.Logger

	mu         sync.Mutex
	deliveries <-chan amqp.Delivery
	closed     bool
}

// New dials the first URI in cfg.Brokers and opens a channel.
func New(cfg broker.Config, logger *slog.Logger, fns ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafkaconsumer/rabbitmq: at least one broker URI is required")
	}
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	uri := cfg.Brokers[0]
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(cfg.ClientID)
	conn, err := amqp.DialConfig(uri, amqp.Config{Properties: props, Dial: amqp.DefaultDial(opts.dialTimeout)})
	if err != nil {
		return nil, fmt.Errorf("kafkaconsumer/rabbitmq: dial %q: %w", uri, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("kafkaconsumer/rabbitmq: open channel: %w", err)
	}

	if err := ch.Qos(opts.prefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("kafkaconsumer/rabbitmq: set qos: %w", err)
	}

	return &Consumer{conn: conn, ch: ch, cfg: cfg, opts: opts, log: logger}, nil
}

// Subscribe declares the queue, binds it when an exchange is configured,
// and starts consuming.
func (c *Consumer) Subscribe(_ context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrSessionClosed
	}
	if c.deliveries != nil {
		return core.ErrAlreadyStarted
	}

	q, err := c.ch.QueueDeclare(
		topic,
		c.opts.durable,
		c.opts.autoDelete,
		c.opts.exclusive,
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("kafkaconsumer/rabbitmq: declare queue %q: %w", topic, err)
	}

	if c.opts.exchange != "" {
		if err := c.ch.ExchangeDeclare(c.opts.exchange, c.opts.exchangeType, c.opts.durable, false, false, false, nil); err != nil {
			return fmt.Errorf("kafkaconsumer/rabbitmq: declare exchange %q: %w", c.opts.exchange, err)
		}
		if err := c.ch.QueueBind(q.Name, c.routingKey(topic), c.opts.exchange, false, nil); err != nil {
			return fmt.Errorf("kafkaconsumer/rabbitmq: bind queue %q: %w", q.Name, err)
		}
	}

	deliveries, err := c.ch.Consume(
		q.Name,
		c.cfg.Group,
		false, // manual ack
		c.opts.exclusive,
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("kafkaconsumer/rabbitmq: consume %q: %w", q.Name, err)
	}
	c.deliveries = deliveries
	c.log.Debug("rabbitmq consumer ready", "queue", q.Name, "tag", c.cfg.Group)
	return nil
}

func (c *Consumer) routingKey(topic string) string {
	if c.opts.routingKey != "" {
		return c.opts.routingKey
	}
	return topic
}

// Next waits for a delivery or for ctx to be done.
func (c *Consumer) Next(ctx context.Context) (core.Message, error) {
	c.mu.Lock()
	deliveries, closed := c.deliveries, c.closed
	c.mu.Unlock()
	if closed {
		return nil, core.ErrSessionClosed
	}
	if deliveries == nil {
		return nil, core.ErrNotSubscribed
	}
	return next(ctx, deliveries, c.opts.requeueOnNack)
}

func next(ctx context.Context, deliveries <-chan amqp.Delivery, requeue bool) (core.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-deliveries:
		if !ok {
			return nil, fmt.Errorf("kafkaconsumer/rabbitmq: delivery channel closed: %w", core.ErrSessionClosed)
		}
		return &message{delivery: d, requeue: requeue}, nil
	}
}

// Close tears down the channel and connection.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if cerr := c.ch.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("kafkaconsumer/rabbitmq: close channel: %w", cerr))
	}
	if cerr := c.conn.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("kafkaconsumer/rabbitmq: close connection: %w", cerr))
	}
	return err
}

func optsFromConfig(cfg broker.Config) []Option {
	if cfg.Extra == nil {
		return nil
	}
	var opts []Option
	if ex, ok := cfg.Extra["exchange"].(string); ok {
		kind := "direct"
		if k, ok := cfg.Extra["exchange_type"].(string); ok {
			kind = k
		}
		opts = append(opts, WithExchange(ex, kind))
	}
	if rk, ok := cfg.Extra["routing_key"].(string); ok {
		opts = append(opts, WithRoutingKey(rk))
	}
	if pf, ok := cfg.Extra["prefetch_count"].(int); ok {
		opts = append(opts, WithPrefetchCount(pf))
	}
	return opts
}
