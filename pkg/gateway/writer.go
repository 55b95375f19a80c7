package gateway

import (
	"time"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/gateway/pkg/protocol"
)

const (
	writeQueueSize = 512
	flushTimeout   = time.Second
)

// writer owns all writes to one endpoint. Packets queued from the event
// loop go out on the writer's goroutine in queue order.
type writer struct {
	conn    protocol.Conn
	queue   chan pk.Packet
	closed  <-chan struct{}
	stopped chan struct{}
	onError func(error)
}

func newWriter(conn protocol.Conn, closed <-chan struct{}, onError func(error)) *writer {
	return &writer{
		conn:    conn,
		queue:   make(chan pk.Packet, writeQueueSize),
		closed:  closed,
		stopped: make(chan struct{}),
		onError: onError,
	}
}

func (w *writer) run() {
	defer close(w.stopped)
	for {
		select {
		case p := <-w.queue:
			if err := w.conn.WritePacket(p); err != nil {
				w.onError(err)
				return
			}
		case <-w.closed:
			w.flush()
			return
		}
	}
}

// flush writes whatever was queued before the session closed.
func (w *writer) flush() {
	for {
		select {
		case p := <-w.queue:
			if w.conn.WritePacket(p) != nil {
				return
			}
		default:
			return
		}
	}
}

// wait blocks until run has returned or timeout elapses.
func (w *writer) wait(timeout time.Duration) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.stopped:
	case <-t.C:
	}
}

func (w *writer) enqueue(p pk.Packet) {
	select {
	case w.queue <- p:
	case <-w.closed:
	}
}

// Send encodes p and queues it.
func (w *writer) Send(p protocol.Payload) {
	w.enqueue(protocol.Encode(p))
}
