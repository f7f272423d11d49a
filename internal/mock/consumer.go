package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/miladsoleymani/kafkaconsumer/core"
)

// ErrDrained is returned by Next once the consumer was stopped with Stop(nil).
var ErrDrained = errors.New("mock: consumer drained")

// Consumer is a test double for core.Consumer. Messages queued with Deliver
// are returned by Next in order; Next blocks while the queue is empty.
type Consumer struct {
	SubscribeErr error
	CloseErr     error

	mu         sync.Mutex
	queue      chan core.Message
	stopErr    error
	topic      string
	subscribes int
	closes     int
}

func NewConsumer() *Consumer {
	return &Consumer{queue: make(chan core.Message, 64)}
}

func (c *Consumer) Subscribe(_ context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribes++
	if c.SubscribeErr != nil {
		return c.SubscribeErr
	}
	c.topic = topic
	return nil
}

func (c *Consumer) Next(ctx context.Context) (core.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-c.queue:
		if !ok {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.stopErr != nil {
				return nil, c.stopErr
			}
			return nil, ErrDrained
		}
		return msg, nil
	}
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return c.CloseErr
}

// Deliver queues messages for Next.
func (c *Consumer) Deliver(msgs ...core.Message) {
	for _, m := range msgs {
		c.queue <- m
	}
}

// Stop makes Next fail with err (or ErrDrained) once the queue is empty.
func (c *Consumer) Stop(err error) {
	c.mu.Lock()
	c.stopErr = err
	c.mu.Unlock()
	close(c.queue)
}

// Topic returns the topic passed to Subscribe.
func (c *Consumer) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

// Subscribes returns how many times Subscribe was called.
func (c *Consumer) Subscribes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribes
}

// Closes returns how many times Close was called.
func (c *Consumer) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}
