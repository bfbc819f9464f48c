// crossrpcd is a small standalone peer: it listens for connections, exposes
// a couple of diagnostic methods and, when configured, announces itself in
// etcd and serves method introspection over HTTP.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/levenlabs/go-llog"
	"github.com/mediocregopher/lever"

	"cross-rpc/client"
	"cross-rpc/introspect"
	"cross-rpc/middleware"
	"cross-rpc/registry"
	"cross-rpc/schema"
	"cross-rpc/transport"
)

type staticSource struct {
	methods []string
}

func (s *staticSource) Methods() []string        { return s.methods }
func (s *staticSource) Schema() *schema.Registry { return nil }

func main() {
	l := lever.New("crossrpcd", nil)
	l.Add(lever.Param{
		Name:        "--listen-addr",
		Description: "address:port to accept rpc connections on, or just :port",
		Default:     ":9770",
	})
	l.Add(lever.Param{
		Name:        "--introspect-addr",
		Description: "address:port to serve http method introspection on, empty to disable",
		Default:     "",
	})
	l.Add(lever.Param{
		Name:        "--etcd-addrs",
		Description: "comma separated etcd endpoints to announce in, empty to disable",
		Default:     "",
	})
	l.Add(lever.Param{
		Name:        "--advertise-addr",
		Description: "address other peers should dial, defaults to the listen address",
		Default:     "",
	})
	l.Add(lever.Param{
		Name:        "--peer-name",
		Description: "peer name announced in the registry",
		Default:     "crossrpcd",
	})
	l.Add(lever.Param{
		Name:        "--log-level",
		Description: "log level (debug, info, warn, error)",
		Default:     "info",
	})
	l.Parse()

	listenAddr, _ := l.ParamStr("--listen-addr")
	introspectAddr, _ := l.ParamStr("--introspect-addr")
	etcdAddrs, _ := l.ParamStr("--etcd-addrs")
	advertiseAddr, _ := l.ParamStr("--advertise-addr")
	peerName, _ := l.ParamStr("--peer-name")
	logLevel, _ := l.ParamStr("--log-level")
	llog.SetLevelFromString(logLevel)

	bindOpts := []client.Option{
		client.WithMiddleware(middleware.Logging()),
		client.WithHandler("Diag.Ping", func() string { return "pong" }),
		client.WithHandler("Diag.Echo", func(v any) any { return v }),
		client.WithHandler("Diag.Time", func() string { return time.Now().UTC().Format(time.RFC3339) }),
	}

	ln, err := transport.Listen("tcp", listenAddr, func(conn *transport.Conn) {
		if _, err := client.Bind(conn, bindOpts...); err != nil {
			llog.Error("failed to bind connection", llog.KV{"error": err})
			conn.Close()
		}
	})
	if err != nil {
		llog.Fatal("failed to listen", llog.KV{"addr": listenAddr, "error": err})
	}
	llog.Info("listening", llog.KV{"addr": ln.Addr().String()})

	if etcdAddrs != "" {
		reg, err := registry.NewEtcdRegistry(strings.Split(etcdAddrs, ","))
		if err != nil {
			llog.Fatal("failed to connect to etcd", llog.KV{"error": err})
		}
		ep := registry.Endpoint{
			Addr:   advertiseAddress(advertiseAddr, ln.Addr()),
			Weight: 1,
		}
		if err := reg.Announce(context.Background(), peerName, ep, 10); err != nil {
			llog.Fatal("failed to announce", llog.KV{"error": err})
		}
	}

	if introspectAddr != "" {
		src := &staticSource{methods: []string{"Diag.Echo", "Diag.Ping", "Diag.Time"}}
		h, err := introspect.NewHandler(src)
		if err != nil {
			llog.Fatal("failed to build introspection handler", llog.KV{"error": err})
		}
		go func() {
			llog.Info("serving introspection", llog.KV{"addr": introspectAddr})
			if err := http.ListenAndServe(introspectAddr, h); err != nil {
				llog.Error("introspection server stopped", llog.KV{"error": err})
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	llog.Info("shutting down", llog.KV{"signal": s.String()})
	ln.Close()
}

// advertiseAddress picks the address announced in the registry: the explicit
// flag when set, else the bound listen address. The bound address carries the
// kernel-assigned port when the listen flag used :0.
func advertiseAddress(flag string, bound net.Addr) string {
	if flag != "" {
		return flag
	}
	return bound.String()
}
