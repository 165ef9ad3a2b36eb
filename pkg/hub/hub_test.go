package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

type frame struct {
	kind int
	data []byte
}

// fakeConn blocks reads until closed and records writes.
type fakeConn struct {
	written   chan frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{written: make(chan frame, 64), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) WriteMessage(kind int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("closed")
	default:
	}
	c.written <- frame{kind: kind, data: data}
	return nil
}

func (c *fakeConn) SetReadLimit(int64) {}
func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func next(t *testing.T, c *fakeConn) frame {
	t.Helper()
	select {
	case f := <-c.written:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return frame{}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_Broadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)
	waitFor(t, h.IsRunning)

	conn := newFakeConn()
	client := NewClient(h, conn, NewJSONMessage([]byte(`{"hello":true}`)))
	go client.Run()

	greeting := next(t, conn)
	if greeting.kind != websocket.TextMessage || string(greeting.data) != `{"hello":true}` {
		t.Errorf("greeting = %d %q", greeting.kind, greeting.data)
	}
	if h.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", h.ClientCount())
	}

	if err := h.BroadcastJSON(map[string]float64{"x": 0.5}); err != nil {
		t.Fatal(err)
	}
	if got := next(t, conn); string(got.data) != `{"x":0.5}` {
		t.Errorf("broadcast = %q", got.data)
	}

	h.BroadcastBinary([]byte{0xff, 0xd8})
	if got := next(t, conn); got.kind != websocket.BinaryMessage || len(got.data) != 2 {
		t.Errorf("binary broadcast = %d %v", got.kind, got.data)
	}
}

func TestHub_Disconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	conn := newFakeConn()
	client := NewClient(h, conn)
	done := make(chan struct{})
	go func() {
		client.Run()
		close(done)
	}()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	conn.Close()
	<-done
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New("test")
	go h.Run(ctx)

	conn := newFakeConn()
	client := NewClient(h, conn)
	done := make(chan struct{})
	go func() {
		client.Run()
		close(done)
	}()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	if got := next(t, conn); got.kind != websocket.CloseMessage {
		t.Errorf("expected close frame, got %d", got.kind)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after hub shutdown")
	}
	if h.IsRunning() {
		t.Error("hub still running")
	}
}
