package middleware

import (
	"context"
	"time"

	"github.com/levenlabs/go-llog"

	"cross-rpc/message"
)

// Logging logs every dispatched request with its method, call id and
// handling duration. Failed dispatches (call-error or a false call-reply)
// are logged at warn level.
func Logging() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) message.Message {
			start := time.Now()
			reply := next(ctx, req)
			kv := llog.KV{
				"method": req.Method,
				"id":     req.ID,
				"took":   time.Since(start).String(),
			}
			switch r := reply.(type) {
			case *message.ProtocolError:
				kv["error"] = r.Reason
				llog.Warn("request failed", kv)
			case *message.Response:
				if !r.OK {
					kv["error"] = r.Result
					llog.Warn("request failed", kv)
				} else {
					llog.Debug("request handled", kv)
				}
			default:
				llog.Debug("request handled", kv)
			}
			return reply
		}
	}
}
