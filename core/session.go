package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Session owns a Consumer bound to a single topic and tracks its State.
//
// A Session is read from one goroutine at a time. Close may be called from
// any goroutine and is idempotent.
type Session struct {
	consumer Consumer
	topic    string
	log      *slog.Logger

	mu     sync.Mutex
	state  State
	closed bool
}

// NewSession wraps c for the given topic. A nil logger discards output.
func NewSession(c Consumer, topic string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		consumer: c,
		topic:    topic,
		log:      logger.With("context", "session", "topic", topic),
	}
}

// Topic returns the topic the session reads from.
func (s *Session) Topic() string { return s.topic }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe binds the consumer to the session topic.
func (s *Session) Subscribe(ctx context.Context) error {
	if s.consumer == nil {
		return ErrNoConsumer
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()

	if err := s.consumer.Subscribe(ctx, s.topic); err != nil {
		if ctx.Err() != nil {
			s.transition(StateCancelled)
			return ErrCancelled
		}
		s.transition(StateFailed)
		return fmt.Errorf("kafkaconsumer: subscribe %q: %w", s.topic, err)
	}

	s.transition(StateSubscribed)
	return nil
}

// Read blocks until the next message arrives or ctx is cancelled.
func (s *Session) Read(ctx context.Context) Result {
	s.mu.Lock()
	switch {
	case s.closed || s.state.Terminal():
		s.mu.Unlock()
		return failed(ErrSessionClosed)
	case s.state == StateUninitialized:
		s.mu.Unlock()
		return failed(ErrNotSubscribed)
	}
	s.state = StateReading
	s.mu.Unlock()

	if ctx.Err() != nil {
		s.transition(StateCancelled)
		return cancelled()
	}

	msg, err := s.consumer.Next(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.transition(StateCancelled)
			return cancelled()
		}
		s.transition(StateFailed)
		return failed(fmt.Errorf("kafkaconsumer: read %q: %w", s.topic, err))
	}
	return received(msg)
}

// Close releases the underlying consumer. Only the first call reaches it.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	state := s.state
	s.mu.Unlock()

	if s.consumer == nil {
		return nil
	}
	s.log.Debug("closing session", "state", state)
	if err := s.consumer.Close(); err != nil {
		return fmt.Errorf("kafkaconsumer: close: %w", err)
	}
	return nil
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if from != to {
		s.log.Debug("session state changed", "from", from, "to", to)
	}
}
