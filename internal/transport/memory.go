package transport

import (
	"context"
	"net"
	"sync"
)

// MemoryListener is an in-process Listener. Dial creates a net.Pipe and queues
// the server side for Accept.
type MemoryListener struct {
	addr        string
	connections chan Conn
	done        chan struct{}
	closeOnce   sync.Once
}

// NewMemoryListener creates a new in-memory listener
func NewMemoryListener(addr string) *MemoryListener {
	return &MemoryListener{
		addr:        addr,
		connections: make(chan Conn),
		done:        make(chan struct{}),
	}
}

// Dial connects a new peer and returns the client side of the pipe.
// It blocks until the server side has been accepted.
func (l *MemoryListener) Dial(ctx context.Context) (Conn, error) {
	client, server := net.Pipe()

	select {
	case l.connections <- server:
		return client, nil
	case <-ctx.Done():
		_ = client.Close()
		_ = server.Close()
		return nil, ctx.Err()
	case <-l.done:
		_ = client.Close()
		_ = server.Close()
		return nil, ErrListenerClosed
	}
}

// Accept waits for the next dialed pipe
func (l *MemoryListener) Accept(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrListenerClosed
	case conn := <-l.connections:
		return conn, nil
	}
}

// Close closes the listener
func (l *MemoryListener) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}

// Addr returns the name given at construction
func (l *MemoryListener) Addr() string {
	return l.addr
}

var _ Listener = (*MemoryListener)(nil)
