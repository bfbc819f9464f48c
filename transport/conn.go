// Package transport carries serialized messages over a TCP connection using
// the protocol package's framing. It knows nothing about message contents:
// inbound payloads are handed raw to a sink (normally the engine's OnMessage)
// in strict arrival order from a single read loop.
package transport

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/levenlabs/go-llog"

	"cross-rpc/protocol"
)

// ErrClosed is returned by Send after the connection is closed.
var ErrClosed = errors.New("transport: connection closed")

// DefaultHeartbeat is the keepalive interval used when none is set.
const DefaultHeartbeat = 30 * time.Second

// Conn wraps a net.Conn with framing, serialized writes, a single-reader
// dispatch loop and periodic heartbeats.
type Conn struct {
	// Heartbeat is the keepalive interval. Set before Start; zero means
	// DefaultHeartbeat, negative disables heartbeats.
	Heartbeat time.Duration

	conn    net.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
	stop    chan struct{}
}

// NewConn wraps an established connection. Call Start to begin reading.
func NewConn(nc net.Conn) *Conn {
	return &Conn{conn: nc, stop: make(chan struct{})}
}

// Send writes one message frame. The write mutex keeps concurrent senders
// from interleaving frames on the shared stream.
func (c *Conn) Send(data []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteFrame(c.conn, protocol.FrameData, data)
}

// Start launches the read and heartbeat loops. onMessage receives each data
// frame's body in arrival order; onClose fires exactly once when the read
// loop ends, with nil for a locally initiated close.
func (c *Conn) Start(onMessage func([]byte), onClose func(error)) {
	go c.readLoop(onMessage, onClose)
	interval := c.Heartbeat
	if interval == 0 {
		interval = DefaultHeartbeat
	}
	if interval > 0 {
		go c.heartbeatLoop(interval)
	}
}

// Close tears down the connection. Idempotent.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.stop)
	return c.conn.Close()
}

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// readLoop is the single reader: frame boundaries on a byte stream only
// survive sequential reads. Heartbeat frames are consumed here.
func (c *Conn) readLoop(onMessage func([]byte), onClose func(error)) {
	for {
		ft, body, err := protocol.ReadFrame(c.conn)
		if err != nil {
			if c.closed.Load() {
				onClose(nil)
			} else {
				llog.Debug("transport read loop ended", llog.KV{"error": err})
				onClose(err)
			}
			return
		}
		if ft == protocol.FrameHeartbeat {
			continue
		}
		onMessage(body)
	}
}

func (c *Conn) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := protocol.WriteFrame(c.conn, protocol.FrameHeartbeat, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
