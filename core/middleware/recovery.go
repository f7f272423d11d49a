package middleware

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/miladsoleymani/kafkaconsumer/core"
)

// Recovery returns middleware that recovers from panics in handlers,
// logs the stack trace, and returns the panic as an error.
func Recovery(logger *slog.Logger) core.MiddlewareFunc {
	return func(next core.HandlerFunc) core.HandlerFunc {
		return func(c core.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					logger.Error("panic recovered in handler", "topic", c.Topic(), "panic", r, "stack", string(buf[:n]))
					err = fmt.Errorf("kafkaconsumer: panic recovered: %v", r)
				}
			}()
			return next(c)
		}
	}
}
