package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TCPListener accepts peers over TCP
type TCPListener struct {
	ln *net.TCPListener
}

// ListenTCP binds addr (host:port, port 0 picks a free one)
func ListenTCP(addr string) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &TCPListener{ln: ln.(*net.TCPListener)}, nil
}

// Accept waits for the next TCP connection or for ctx to end
func (l *TCPListener) Accept(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := interruptOnDone(ctx, l.ln.SetDeadline)
	conn, err := l.ln.AcceptTCP()
	stop()

	if err != nil {
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return nil, ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		return nil, err
	}

	_ = conn.SetKeepAlive(true)
	return conn, nil
}

// Close stops listening
func (l *TCPListener) Close() error {
	return l.ln.Close()
}

// Addr returns the bound address
func (l *TCPListener) Addr() string {
	return l.ln.Addr().String()
}

var _ Listener = (*TCPListener)(nil)
