// Package protocoltest provides in-memory packet connections for tests.
package protocoltest

import (
	"io"
	"sync"

	pk "github.com/Tnze/go-mc/net/packet"
)

// PipeConn is one end of an in-memory packet connection.
type PipeConn struct {
	in   <-chan pk.Packet
	out  chan<- pk.Packet
	done chan struct{}
	once *sync.Once
}

// Pipe returns two connected in-memory connections. Packets written to one
// are read from the other in order. Closing either end closes both.
func Pipe() (*PipeConn, *PipeConn) {
	ab := make(chan pk.Packet, 256)
	ba := make(chan pk.Packet, 256)
	done := make(chan struct{})
	once := new(sync.Once)
	return &PipeConn{in: ba, out: ab, done: done, once: once},
		&PipeConn{in: ab, out: ba, done: done, once: once}
}

func (c *PipeConn) ReadPacket(p *pk.Packet) error {
	select {
	case packet := <-c.in:
		*p = packet
		return nil
	case <-c.done:
		// drain what was written before the close
		select {
		case packet := <-c.in:
			*p = packet
			return nil
		default:
			return io.EOF
		}
	}
}

func (c *PipeConn) WritePacket(p pk.Packet) error {
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	select {
	case <-c.done:
		return io.ErrClosedPipe
	default:
	}
	select {
	case c.out <- pk.Packet{ID: p.ID, Data: data}:
		return nil
	case <-c.done:
		return io.ErrClosedPipe
	}
}

func (c *PipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
