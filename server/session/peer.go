package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/julienstroheker/pairrelay/internal/chat"
	"github.com/julienstroheker/pairrelay/internal/transport"
)

// Peer is one accepted client. It belongs to a single session, which closes it.
type Peer struct {
	ID         string
	RemoteAddr string
	Endpoint   Endpoint

	closeOnce sync.Once
	closeErr  error
}

// NewPeer frames conn as a chat channel
func NewPeer(conn transport.Conn, opts *chat.ChannelOptions) *Peer {
	remote := "unknown"
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}

	return &Peer{
		ID:         uuid.NewString(),
		RemoteAddr: remote,
		Endpoint:   chat.NewChannel(conn, opts),
	}
}

// Close releases the connection. Later calls return the first result.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.Endpoint.Close()
	})
	return p.closeErr
}
