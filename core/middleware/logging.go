package middleware

import (
	"log/slog"
	"time"

	"github.com/miladsoleymani/kafkaconsumer/core"
)

// Logging returns middleware that logs message processing duration and errors.
func Logging(logger *slog.Logger) core.MiddlewareFunc {
	logger = logger.With("context", "handler")
	return func(next core.HandlerFunc) core.HandlerFunc {
		return func(c core.Context) error {
			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)

			msg := c.Message()
			if err != nil {
				logger.Error("message handling failed",
					"topic", c.Topic(), "partition", msg.Partition(), "offset", msg.Offset(),
					"key", string(c.Key()), "elapsed", elapsed, "error", err)
			} else {
				logger.Debug("message handled",
					"topic", c.Topic(), "partition", msg.Partition(), "offset", msg.Offset(),
					"key", string(c.Key()), "elapsed", elapsed)
			}
			return err
		}
	}
}
