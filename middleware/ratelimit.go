package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"cross-rpc/message"
)

// RateLimit rejects inbound requests beyond r requests per second with the
// given burst, using a token bucket. Rejected requests that expect a reply
// receive a call-error; one-way requests are dropped silently.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) message.Message {
			if !limiter.Allow() {
				return &message.ProtocolError{ID: req.ID, Reason: "rate limit exceeded"}
			}
			return next(ctx, req)
		}
	}
}
