// Package middleware provides composable wrappers around inbound request
// dispatch. A Middleware wraps the handler that turns a decoded Request into
// its reply message (nil when the request is one-way and no reply is sent).
package middleware

import (
	"context"

	"cross-rpc/message"
)

// HandlerFunc processes one inbound request and returns the reply to send,
// or nil when no reply is expected.
type HandlerFunc func(ctx context.Context, req *message.Request) message.Message

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one. Chain(A, B, C)(h) = A(B(C(h))), so A
// sees the request first and the reply last.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
