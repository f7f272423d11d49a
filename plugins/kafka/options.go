package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// Option configures the Kafka consumer.
type Option func(*options)

type options struct {
	// Reader
	minBytes       int
	maxBytes       int
	maxWait        time.Duration
	commitInterval time.Duration

	// General
	dialer      *kafka.Dialer
	dialTimeout time.Duration
	probe       bool
}

func defaults() options {
	return options{
		minBytes:       1,
		maxBytes:       10e6, // 10 MB
		maxWait:        500 * time.Millisecond,
		commitInterval: 0, // synchronous commit on Ack
		dialTimeout:    10 * time.Second,
		probe:          true,
	}
}

// WithMinBytes sets the minimum bytes per fetch.
func WithMinBytes(n int) Option {
	return func(o *options) { o.minBytes = n }
}

// WithMaxBytes sets the maximum bytes per fetch.
func WithMaxBytes(n int) Option {
	return func(o *options) { o.maxBytes = n }
}

// WithMaxWait sets the maximum wait time for fetches.
func WithMaxWait(d time.Duration) Option {
	return func(o *options) { o.maxWait = d }
}

// WithCommitInterval makes Ack commits asynchronous, flushed every d.
func WithCommitInterval(d time.Duration) Option {
	return func(o *options) { o.commitInterval = d }
}

// WithDialer sets a custom dialer for TLS/SASL connections.
func WithDialer(d *kafka.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithDialTimeout bounds each broker dial, including the Subscribe probe.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithProbe controls the broker reachability check done by Subscribe.
func WithProbe(enabled bool) Option {
	return func(o *options) { o.probe = enabled }
}
