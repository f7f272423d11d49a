// Package kafkaconsumer provides the top-level API for embedding the
// consumer in another program. It re-exports core types for convenience,
// so users can write:
//
//	s, err := kafkaconsumer.Open("kafka", "localhost:9092", "orders", logger)
//	r := kafkaconsumer.New(s, logger)
//	r.Handle(handler)
//	err = r.Run(ctx)
package kafkaconsumer

import (
	"log/slog"

	"github.com/miladsoleymani/kafkaconsumer/broker"
	"github.com/miladsoleymani/kafkaconsumer/core"
)

// Re-export core types at the package level for ergonomic usage.
type (
	Message        = core.Message
	Context        = core.Context
	HandlerFunc    = core.HandlerFunc
	MiddlewareFunc = core.MiddlewareFunc
	Consumer       = core.Consumer
	Session        = core.Session
	Router         = core.Router
	Result         = core.Result
	Config         = broker.Config
)

// Open builds the configuration for address and topic and opens a session
// on the named driver. The driver package must be imported for its side
// effect of registering itself.
func Open(driver, address, topic string, logger *slog.Logger) (*Session, error) {
	cfg, err := broker.NewConfig(address, topic)
	if err != nil {
		return nil, err
	}
	return broker.Open(driver, cfg, logger)
}

// New creates a Router bound to the given Session.
func New(s *Session, logger *slog.Logger) *Router {
	return core.New(s, logger)
}
