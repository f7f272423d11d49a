package middleware

import (
	"sync/atomic"
	"time"

	"github.com/miladsoleymani/kafkaconsumer/core"
)

// MetricsCollector is the interface that metrics backends must implement.
// This keeps the middleware decoupled from any specific metrics library.
type MetricsCollector interface {
	// MessageProcessed records that a message was processed.
	// duration is processing time and err is nil on success.
	MessageProcessed(topic string, duration time.Duration, err error)
}

// Metrics returns middleware that reports processing metrics to the given collector.
func Metrics(collector MetricsCollector) core.MiddlewareFunc {
	return func(next core.HandlerFunc) core.HandlerFunc {
		return func(c core.Context) error {
			start := time.Now()
			err := next(c)
			collector.MessageProcessed(c.Topic(), time.Since(start), err)
			return err
		}
	}
}

// Counter is an in-process MetricsCollector.
type Counter struct {
	processed atomic.Int64
	failed    atomic.Int64
	busy      atomic.Int64
}

func (c *Counter) MessageProcessed(_ string, d time.Duration, err error) {
	c.processed.Add(1)
	c.busy.Add(int64(d))
	if err != nil {
		c.failed.Add(1)
	}
}

// Processed returns the number of messages seen, failed ones included.
func (c *Counter) Processed() int64 { return c.processed.Load() }

// Failed returns the number of messages whose handler returned an error.
func (c *Counter) Failed() int64 { return c.failed.Load() }

// Busy returns the total time spent in handlers.
func (c *Counter) Busy() time.Duration { return time.Duration(c.busy.Load()) }
