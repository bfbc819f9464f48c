package middleware

import (
	"context"
	"time"

	"cross-rpc/message"
)

// Timeout bounds handler execution. The handler keeps running in its own
// goroutine after the deadline (Go offers no way to kill it), but the caller
// gets a call-error as soon as the deadline passes.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) message.Message {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			done := make(chan message.Message, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case reply := <-done:
				return reply
			case <-ctx.Done():
				return &message.ProtocolError{ID: req.ID, Reason: "request timed out"}
			}
		}
	}
}
