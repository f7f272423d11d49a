package core

import "context"

// Consumer defines the contract for broker driver implementations.
// Each driver plugin must implement this interface.
//
// Subscribe binds the consumer to exactly one topic. Next blocks until a
// message is available or ctx is done; once ctx is done it must return
// promptly with an error, and callers treat any error observed after ctx is
// done as cancellation. Close releases broker-side resources (for example
// leaving the consumer group) and must be safe to call more than once.
type Consumer interface {
	Subscribe(ctx context.Context, topic string) error
	Next(ctx context.Context) (Message, error)
	Close() error
}
