package transport

import (
	"net"
	"sync/atomic"

	"github.com/levenlabs/go-llog"
	"golang.org/x/sync/errgroup"
)

// Listener accepts inbound connections and hands each one, already wrapped
// in a Conn, to a bind function. The bind function typically builds an engine
// over the Conn, registers handlers and starts it.
type Listener struct {
	l        net.Listener
	g        errgroup.Group
	shutdown atomic.Bool
}

// Listen starts accepting on address. bind runs once per accepted connection,
// on the accept goroutine; it should return quickly.
func Listen(network, address string, bind func(*Conn)) (*Listener, error) {
	nl, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	l := &Listener{l: nl}
	l.g.Go(func() error {
		for {
			nc, err := nl.Accept()
			if err != nil {
				if l.shutdown.Load() {
					return nil
				}
				return err
			}
			llog.Debug("accepted connection", llog.KV{"remote": nc.RemoteAddr().String()})
			bind(NewConn(nc))
		}
	})
	return l, nil
}

// Addr returns the bound listen address.
func (l *Listener) Addr() net.Addr { return l.l.Addr() }

// Close stops accepting and waits for the accept loop to exit. Connections
// already handed to bind stay open.
func (l *Listener) Close() error {
	l.shutdown.Store(true)
	err := l.l.Close()
	if werr := l.g.Wait(); werr != nil && err == nil {
		err = werr
	}
	return err
}
