package transport

import (
	"net"
	"testing"
	"time"
)

func TestListenerBindsAcceptedConns(t *testing.T) {
	accepted := make(chan *Conn, 1)
	l, err := Listen("tcp", "127.0.0.1:0", func(c *Conn) { accepted <- c })
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	nc, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer nc.Close()

	select {
	case c := <-accepted:
		c.Close()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bind")
	}
}

func TestListenerCloseStopsAccepting(t *testing.T) {
	l, err := Listen("tcp", "127.0.0.1:0", func(c *Conn) { c.Close() })
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if nc, err := net.Dial("tcp", addr); err == nil {
		nc.Close()
		t.Error("dial succeeded after listener close")
	}
}
