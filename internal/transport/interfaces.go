package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

var (
	// ErrListenerClosed is returned when accepting on a closed listener
	ErrListenerClosed = errors.New("listener is closed")
	// ErrConnectionClosed is returned when reading or writing a closed connection
	ErrConnectionClosed = errors.New("connection is closed")
)

// Conn is one peer's bidirectional byte stream
type Conn interface {
	io.ReadWriteCloser

	// SetReadDeadline and SetWriteDeadline interrupt blocked operations
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error

	// RemoteAddr returns the peer's network address
	RemoteAddr() net.Addr
}

// Listener accepts peer connections
type Listener interface {
	// Accept waits for and returns the next connection. When ctx ends first it
	// returns ctx.Err() unwrapped.
	Accept(ctx context.Context) (Conn, error)

	// Close closes the listener. Blocked Accept calls return ErrListenerClosed.
	Close() error

	// Addr returns the address peers connect to
	Addr() string
}

// interruptOnDone sets a deadline in the past once ctx is done and clears it
// again when the returned func runs after the deadline fired
func interruptOnDone(ctx context.Context, setDeadline func(time.Time) error) func() {
	if ctx.Done() == nil {
		return func() {}
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = setDeadline(time.Now())
	})

	return func() {
		if !stop() {
			<-fired
			_ = setDeadline(time.Time{})
		}
	}
}
