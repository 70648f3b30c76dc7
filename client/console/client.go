package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/julienstroheker/pairrelay/internal/chat"
	"github.com/julienstroheker/pairrelay/internal/logging"
	"github.com/julienstroheker/pairrelay/internal/transport"
)

// QuitCommand ends the chat when typed on its own line
const QuitCommand = "/quit"

// Dial connects to a relay. addr is host:port for tcp and a ws:// URL for websocket.
func Dial(ctx context.Context, network, addr string) (transport.Conn, error) {
	switch network {
	case "tcp":
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
		}
		return conn, nil
	case "websocket":
		return transport.DialWebSocket(ctx, addr)
	default:
		return nil, fmt.Errorf("unsupported transport: %q", network)
	}
}

// Options configures a Client
type Options struct {
	// Name is the sender name on every outgoing message
	Name string

	// Output receives incoming messages, one per line
	Output io.Writer

	// MaxMessageBytes caps one encoded message (0 means the channel default)
	MaxMessageBytes int

	// Logger is optional
	Logger *logging.Logger
}

// Client is an interactive chat session with the relay
type Client struct {
	ch     *chat.Channel
	name   string
	logger *logging.Logger

	outMu sync.Mutex
	out   io.Writer
}

// NewClient wraps an established connection
func NewClient(conn transport.Conn, opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}
	name := opts.Name
	if name == "" {
		name = "anonymous"
	}
	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Client{
		ch:     chat.NewChannel(conn, &chat.ChannelOptions{MaxMessageBytes: opts.MaxMessageBytes}),
		name:   name,
		logger: logger,
		out:    out,
	}
}

// Run sends each line read from in and prints what the relay delivers. It
// returns when the relay closes the connection, in ends, /quit is typed or
// ctx is cancelled. The connection is closed on return.
func (c *Client) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	go func() { errc <- c.receive(ctx) }()
	go func() { errc <- c.send(ctx, in) }()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
	}
	cancel()
	_ = c.ch.Close()

	if ctx.Err() != nil && err == nil {
		return nil
	}
	return err
}

func (c *Client) receive(ctx context.Context) error {
	for {
		m, err := c.ch.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}
		if m == nil {
			c.println("Disconnected from relay.")
			return nil
		}
		c.println(m.String())
	}
}

func (c *Client) send(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == QuitCommand {
			c.logger.Debug("Quit requested")
			return nil
		}

		if err := c.ch.Write(ctx, chat.NewMessage(c.name, line)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to send: %w", err)
		}
	}
	return scanner.Err()
}

func (c *Client) println(s string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprintln(c.out, s)
}
