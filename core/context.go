package core

import (
	"context"
	"fmt"
	"sync"
)

// Context is the handler context for a received message. It wraps the
// message and exposes the response methods (Ack, Nack).
type Context interface {
	// Context returns the underlying context.Context.
	Context() context.Context

	// SetContext replaces the underlying context.Context.
	// Useful for middleware that enriches the context with values or deadlines.
	SetContext(ctx context.Context)

	// Message returns the raw underlying Message.
	Message() Message

	// Topic returns the topic this message was received on.
	Topic() string

	// Key returns the message key.
	Key() []byte

	// Value returns the raw message body.
	Value() []byte

	// Header returns a single header value by key.
	Header(key string) string

	// Headers returns all message headers.
	Headers() map[string]string

	// Ack acknowledges the message (commits the offset).
	Ack() error

	// Nack leaves the message unacknowledged.
	Nack() error

	// Set stores a key-value pair in the context store.
	// Used by middleware to pass data to downstream handlers.
	Set(key string, val any)

	// Get retrieves a value from the context store.
	Get(key string) (any, bool)
}

// HandlerFunc is the function signature for message handlers.
//
//	r.Handle(func(c kafkaconsumer.Context) error {
//	    fmt.Println(string(c.Value()))
//	    return c.Ack()
//	})
type HandlerFunc func(c Context) error

// MiddlewareFunc wraps a HandlerFunc to add cross-cutting behavior.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

type messageContext struct {
	ctx   context.Context
	msg   Message
	topic string
	store map[string]any
	mu    sync.RWMutex
}

// NewContext creates a Context for the given message.
// This is called internally by the Router for each incoming message.
func NewContext(ctx context.Context, msg Message, topic string) Context {
	if t := msg.Topic(); t != "" {
		topic = t
	}
	return &messageContext{
		ctx:   ctx,
		msg:   msg,
		topic: topic,
		store: make(map[string]any),
	}
}

func (c *messageContext) Context() context.Context { return c.ctx }

func (c *messageContext) SetContext(ctx context.Context) { c.ctx = ctx }

func (c *messageContext) Message() Message { return c.msg }

func (c *messageContext) Topic() string { return c.topic }

func (c *messageContext) Key() []byte { return c.msg.Key() }

func (c *messageContext) Value() []byte { return c.msg.Value() }

func (c *messageContext) Header(key string) string {
	return c.msg.Headers()[key]
}

func (c *messageContext) Headers() map[string]string {
	return c.msg.Headers()
}

func (c *messageContext) Ack() error {
	if err := c.msg.Ack(); err != nil {
		return fmt.Errorf("kafkaconsumer: ack: %w", err)
	}
	return nil
}

func (c *messageContext) Nack() error {
	if err := c.msg.Nack(); err != nil {
		return fmt.Errorf("kafkaconsumer: nack: %w", err)
	}
	return nil
}

func (c *messageContext) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

func (c *messageContext) Get(key string) (any, bool) {
	c.mu.RLock()
	val, ok := c.store[key]
	c.mu.RUnlock()
	return val, ok
}
