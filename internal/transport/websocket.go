package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienstroheker/pairrelay/internal/logging"
)

const closeGracePeriod = time.Second

// wsConn exposes a WebSocket as a byte stream. Each Write is sent as one binary
// message; Read drains messages in order, buffering what does not fit in p.
// It allows one concurrent reader and one concurrent writer.
type wsConn struct {
	conn    *websocket.Conn
	pending []byte
	closed  atomic.Bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

// Read reads data from the connection
func (c *wsConn) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrConnectionClosed
	}

	for len(c.pending) == 0 {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if messageType != websocket.BinaryMessage {
			return 0, fmt.Errorf("unexpected message type: %d", messageType)
		}
		c.pending = data
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write sends p as a single binary message
func (c *wsConn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrConnectionClosed
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a close frame and releases the socket
func (c *wsConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	return c.conn.Close()
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *wsConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// WebSocketOptions configures a WebSocketListener
type WebSocketOptions struct {
	// Addr is reported by Addr(); the HTTP server owns the actual socket
	Addr string

	// Path is the HTTP path peers connect to, used only for Addr()
	Path string

	// Logger is used for upgrade failures (optional)
	Logger *logging.Logger
}

// WebSocketListener upgrades HTTP requests and hands the sockets to Accept
type WebSocketListener struct {
	upgrader websocket.Upgrader
	addr     string
	logger   *logging.Logger

	incoming  chan Conn
	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocketListener creates a listener; mount it on an HTTP server to receive peers
func NewWebSocketListener(opts *WebSocketOptions) *WebSocketListener {
	if opts == nil {
		opts = &WebSocketOptions{}
	}

	return &WebSocketListener{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Peers are chat clients, not browsers bound by same-origin rules
			CheckOrigin: func(*http.Request) bool { return true },
		},
		addr:     opts.Addr + opts.Path,
		logger:   opts.Logger,
		incoming: make(chan Conn),
		done:     make(chan struct{}),
	}
}

// ServeHTTP upgrades the request and waits until the socket is accepted
// or the listener is closed
func (l *WebSocketListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-l.done:
		http.Error(w, "listener closed", http.StatusServiceUnavailable)
		return
	default:
	}

	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		l.logger.Warn("WebSocket upgrade failed",
			logging.String("remote_addr", r.RemoteAddr),
			logging.Error(err))
		return
	}

	conn := newWSConn(ws)
	select {
	case l.incoming <- conn:
	case <-l.done:
		_ = conn.Close()
	}
}

// Accept waits for the next upgraded socket
func (l *WebSocketListener) Accept(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrListenerClosed
	case conn := <-l.incoming:
		return conn, nil
	}
}

// Close makes pending and future Accept calls fail
func (l *WebSocketListener) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}

// Addr returns the advertised host:port and path
func (l *WebSocketListener) Addr() string {
	return l.addr
}

// DialWebSocket connects to a relay WebSocket endpoint such as ws://host:5000/chat
func DialWebSocket(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 30 * time.Second,
	}

	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return newWSConn(ws), nil
}

var (
	_ Conn         = (*wsConn)(nil)
	_ Listener     = (*WebSocketListener)(nil)
	_ http.Handler = (*WebSocketListener)(nil)
)

