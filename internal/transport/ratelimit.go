package transport

import (
	"context"
	"io"

	"github.com/shazow/rateio"
)

type limitedConn struct {
	Conn
	reader io.Reader
}

func (c *limitedConn) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}

// LimitReads returns a Conn whose reads are rate limited by limiter.
// Exceeding the limit fails the read with rateio.ErrRateExceeded.
func LimitReads(conn Conn, limiter rateio.Limiter) Conn {
	return &limitedConn{
		Conn:   conn,
		reader: rateio.NewReader(conn, limiter),
	}
}

// rateLimitedListener wraps every accepted Conn with a fresh limiter
type rateLimitedListener struct {
	Listener
	newLimiter func() rateio.Limiter
}

// RateLimited wraps a listener so that each accepted peer gets its own read limiter
func RateLimited(l Listener, newLimiter func() rateio.Limiter) Listener {
	if newLimiter == nil {
		return l
	}
	return &rateLimitedListener{Listener: l, newLimiter: newLimiter}
}

func (l *rateLimitedListener) Accept(ctx context.Context) (Conn, error) {
	conn, err := l.Listener.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return LimitReads(conn, l.newLimiter()), nil
}
