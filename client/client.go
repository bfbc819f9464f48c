// Package client bootstraps peer sessions: it resolves an address (directly
// or through a registry), opens the TCP transport, binds a connection engine
// over it and marks the engine ready so deferred traffic replays.
package client

import (
	"context"
	"net"

	"github.com/levenlabs/go-llog"

	"cross-rpc/codec"
	"cross-rpc/engine"
	"cross-rpc/loadbalance"
	"cross-rpc/middleware"
	"cross-rpc/registry"
	"cross-rpc/schema"
	"cross-rpc/transport"
)

type config struct {
	codec       codec.Codec
	schema      *schema.Registry
	middlewares []middleware.Middleware
	handlers    []namedHandler
	onFault     func(error)
}

type namedHandler struct {
	name string
	fn   any
}

// Option configures a session before the engine is marked ready.
type Option func(*config)

// WithCodec overrides the default JSON codec.
func WithCodec(c codec.Codec) Option {
	return func(cfg *config) { cfg.codec = c }
}

// WithSchema loads an IDL-derived schema into the engine.
func WithSchema(r *schema.Registry) Option {
	return func(cfg *config) { cfg.schema = r }
}

// WithMiddleware appends inbound-dispatch middleware.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(cfg *config) { cfg.middlewares = append(cfg.middlewares, mw...) }
}

// WithHandler registers a method handler before any inbound message is
// dispatched, so traffic buffered during connection setup can reach it.
func WithHandler(name string, fn any) Option {
	return func(cfg *config) { cfg.handlers = append(cfg.handlers, namedHandler{name, fn}) }
}

// WithFaultHandler overrides the engine's protocol-fault reaction.
func WithFaultHandler(fn func(error)) Option {
	return func(cfg *config) { cfg.onFault = fn }
}

// Dial opens a TCP connection to address and binds an engine over it.
func Dial(network, address string, opts ...Option) (*engine.Engine, error) {
	nc, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	return Bind(transport.NewConn(nc), opts...)
}

// DialPeer resolves a peer name through the registry, picks one endpoint and
// dials it.
func DialPeer(ctx context.Context, reg registry.Registry, bal loadbalance.Balancer, peer string, opts ...Option) (*engine.Engine, error) {
	eps, err := reg.Resolve(ctx, peer)
	if err != nil {
		return nil, err
	}
	ep, err := bal.Pick(eps)
	if err != nil {
		return nil, err
	}
	llog.Debug("dialing peer", llog.KV{"peer": peer, "addr": ep.Addr, "balancer": bal.Name()})
	return Dial("tcp", ep.Addr, opts...)
}

// Bind wires an engine over an established transport connection: handlers
// and middleware first, then the read loop, then the ready transition. Used
// for both dialed and accepted connections.
func Bind(conn *transport.Conn, opts ...Option) (*engine.Engine, error) {
	cfg := &config{codec: &codec.JSONCodec{}}
	for _, opt := range opts {
		opt(cfg)
	}

	var engOpts []engine.Option
	if cfg.schema != nil {
		engOpts = append(engOpts, engine.WithSchema(cfg.schema))
	}
	if cfg.onFault != nil {
		engOpts = append(engOpts, engine.WithFaultHandler(cfg.onFault))
	}
	eng := engine.New(conn, cfg.codec, engOpts...)
	eng.Use(cfg.middlewares...)
	for _, h := range cfg.handlers {
		if err := eng.Register(h.name, h.fn); err != nil {
			conn.Close()
			return nil, err
		}
	}

	conn.Start(eng.OnMessage, func(err error) {
		if err != nil {
			llog.Info("connection lost", llog.KV{"error": err})
		}
		eng.Close()
	})
	eng.Ready()
	return eng, nil
}
