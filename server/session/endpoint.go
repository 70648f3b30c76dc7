//go:generate go run go.uber.org/mock/mockgen -source=endpoint.go -destination=../../internal/mocks/mock_endpoint.go -package=mocks
package session

import (
	"context"
	"io"

	"github.com/julienstroheker/pairrelay/internal/chat"
)

// Reader yields the next message from a peer, or (nil, nil) once the peer is gone
type Reader interface {
	Read(ctx context.Context) (*chat.Message, error)
}

// Writer delivers one message to a peer
type Writer interface {
	Write(ctx context.Context, msg chat.Message) error
}

// Endpoint is the message side of a peer connection. *chat.Channel implements it.
type Endpoint interface {
	Reader
	Writer
	io.Closer
}

var _ Endpoint = (*chat.Channel)(nil)
