package transport

import (
	"net"
	"testing"
	"time"

	"cross-rpc/protocol"
)

// pipePair returns two connected Conns with heartbeats disabled so tests
// control exactly which frames cross the wire.
func pipePair() (*Conn, *Conn) {
	a, b := net.Pipe()
	ca, cb := NewConn(a), NewConn(b)
	ca.Heartbeat = -1
	cb.Heartbeat = -1
	return ca, cb
}

func TestSendDeliversInOrder(t *testing.T) {
	local, remote := pipePair()
	defer local.Close()
	defer remote.Close()

	got := make(chan []byte, 4)
	remote.Start(func(b []byte) { got <- b }, func(error) {})

	want := []string{"first", "second", "third"}
	go func() {
		for _, m := range want {
			if err := local.Send([]byte(m)); err != nil {
				t.Errorf("Send failed: %v", err)
			}
		}
	}()

	for _, m := range want {
		select {
		case b := <-got:
			if string(b) != m {
				t.Errorf("got %q, want %q", b, m)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
}

func TestHeartbeatFramesAreConsumed(t *testing.T) {
	local, remote := pipePair()
	defer local.Close()
	defer remote.Close()

	got := make(chan []byte, 2)
	remote.Start(func(b []byte) { got <- b }, func(error) {})

	go func() {
		local.writeMu.Lock()
		protocol.WriteFrame(local.conn, protocol.FrameHeartbeat, nil)
		local.writeMu.Unlock()
		local.Send([]byte("payload"))
	}()

	select {
	case b := <-got:
		if string(b) != "payload" {
			t.Errorf("got %q, want %q", b, "payload")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestLocalCloseReportsNil(t *testing.T) {
	local, remote := pipePair()
	defer remote.Close()

	closed := make(chan error, 1)
	local.Start(func([]byte) {}, func(err error) { closed <- err })

	if err := local.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("local close reported error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close notification")
	}

	if err := local.Send([]byte("late")); err != ErrClosed {
		t.Errorf("Send after close: got %v, want ErrClosed", err)
	}
}

func TestPeerCloseReportsError(t *testing.T) {
	local, remote := pipePair()
	defer local.Close()

	closed := make(chan error, 1)
	local.Start(func([]byte) {}, func(err error) { closed <- err })

	remote.Close()
	select {
	case err := <-closed:
		if err == nil {
			t.Error("peer close reported nil error")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close notification")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	local, remote := pipePair()
	defer remote.Close()

	if err := local.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := local.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
