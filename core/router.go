package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"
)

// Router runs the read loop of a Session and dispatches every received
// message, one at a time and in arrival order, to a single handler wrapped
// in middleware.
type Router struct {
	session     *Session
	log         *slog.Logger
	middlewares []MiddlewareFunc
	handler     HandlerFunc
	mu          sync.Mutex
	started     bool
}

// New creates a Router bound to the given Session. A nil logger discards output.
func New(s *Session, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		session: s,
		log:     logger.With("context", "router"),
	}
}

// Use registers middleware. Given [A, B] the call order is A -> B -> handler.
func (r *Router) Use(m MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, m)
}

// Handle sets the message handler, replacing any previous one.
func (r *Router) Handle(h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

// Run subscribes the session and reads until ctx is cancelled or a read
// fails. The session is closed before Run returns, on every path.
//
// Run returns nil when the loop ended because ctx was cancelled. Handler
// errors do not stop the loop; the message is simply left unacknowledged.
func (r *Router) Run(ctx context.Context) (err error) {
	r.mu.Lock()
	if r.session == nil {
		r.mu.Unlock()
		return ErrNoConsumer
	}
	if r.handler == nil {
		r.mu.Unlock()
		return ErrNoHandler
	}
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true

	mws := make([]MiddlewareFunc, len(r.middlewares))
	copy(mws, r.middlewares)
	handler := applyMiddleware(r.handler, mws)
	session := r.session
	r.mu.Unlock()

	defer func() {
		if cerr := session.Close(); cerr != nil {
			err = multierr.Append(err, cerr)
		}
	}()

	if err := session.Subscribe(ctx); err != nil {
		if errors.Is(err, ErrCancelled) {
			return nil
		}
		return err
	}
	r.log.Debug("subscribed, entering read loop", "topic", session.Topic())

	for {
		res := session.Read(ctx)
		switch res.Outcome {
		case OutcomeReceived:
			c := NewContext(ctx, res.Message, session.Topic())
			if herr := handler(c); herr != nil {
				r.log.Debug("handler returned error, message left unacknowledged", "error", herr)
			}
		case OutcomeCancelled:
			return nil
		case OutcomeFailed:
			return res.Err
		default:
			return fmt.Errorf("kafkaconsumer: unexpected read outcome %v", res.Outcome)
		}
	}
}

// applyMiddleware wraps a handler with middleware in reverse order.
// Given middleware [A, B, C], the call order is A -> B -> C -> handler.
func applyMiddleware(h HandlerFunc, mws []MiddlewareFunc) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
