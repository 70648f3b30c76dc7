package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienstroheker/pairrelay/internal/logging"
)

// TokenSource supplies the ServiceBusAuthorization header value for Azure Relay
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// AzureRelayOptions configures an AzureRelayListener
type AzureRelayOptions struct {
	// Namespace is the relay host, e.g. "myrelay.servicebus.windows.net"
	Namespace string

	// HybridConnection is the Hybrid Connection name
	HybridConnection string

	// Tokens authenticates the control channel
	Tokens TokenSource

	// Logger is optional
	Logger *logging.Logger
}

// AzureRelayListener accepts peers that reach the relay through an Azure Relay
// Hybrid Connection. Each sender connection arrives as an accept notice on the
// control channel and is completed by dialing the rendezvous address.
type AzureRelayListener struct {
	namespace        string
	hybridConnection string
	listenerID       string
	tokens           TokenSource
	logger           *logging.Logger
	dialer           websocket.Dialer

	mu          sync.Mutex
	controlConn *websocket.Conn
	closed      bool

	accepted  chan Conn
	done      chan struct{}
	closeOnce sync.Once
}

// acceptNotice is the control channel message announcing a new sender
type acceptNotice struct {
	Accept *struct {
		Address string `json:"address"`
		ID      string `json:"id"`
	} `json:"accept"`
}

// NewAzureRelayListener validates options; the control channel is opened on first Accept
func NewAzureRelayListener(opts *AzureRelayOptions) (*AzureRelayListener, error) {
	if opts == nil {
		return nil, errors.New("options cannot be nil")
	}
	if opts.Namespace == "" {
		return nil, errors.New("relay namespace is required")
	}
	if opts.HybridConnection == "" {
		return nil, errors.New("hybrid connection name is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("token source is required")
	}

	return &AzureRelayListener{
		namespace:        opts.Namespace,
		hybridConnection: opts.HybridConnection,
		listenerID:       uuid.New().String(),
		tokens:           opts.Tokens,
		logger:           opts.Logger,
		dialer:           websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		accepted:         make(chan Conn, 4),
		done:             make(chan struct{}),
	}, nil
}

// controlURL builds wss://<namespace>/$hc/<name>?sb-hc-action=listen&sb-hc-id=<id>
func (l *AzureRelayListener) controlURL() string {
	q := url.Values{}
	q.Set("sb-hc-action", "listen")
	q.Set("sb-hc-id", l.listenerID)
	return fmt.Sprintf("wss://%s/$hc/%s?%s", l.namespace, url.PathEscape(l.hybridConnection), q.Encode())
}

// connect opens the control channel if it is not open yet
func (l *AzureRelayListener) connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrListenerClosed
	}
	if l.controlConn != nil {
		return nil
	}

	token, err := l.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get relay token: %w", err)
	}

	header := http.Header{}
	header.Add("ServiceBusAuthorization", token)

	l.logger.Debug("Connecting to Azure Relay control channel",
		logging.String("namespace", l.namespace),
		logging.String("hybrid_connection", l.hybridConnection),
		logging.String("listener_id", l.listenerID))

	conn, resp, err := l.dialer.DialContext(ctx, l.controlURL(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect to relay control channel (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect to relay control channel: %w", err)
	}

	l.logger.Info("Azure Relay control channel connected",
		logging.String("hybrid_connection", l.hybridConnection))

	l.controlConn = conn
	go l.readControl(conn)
	return nil
}

// Accept waits for the next rendezvous connection
func (l *AzureRelayListener) Accept(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrListenerClosed
	case conn := <-l.accepted:
		return conn, nil
	}
}

// readControl processes accept notices until the control channel fails.
// A failed control channel closes the listener, which surfaces to Accept.
func (l *AzureRelayListener) readControl(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				l.logger.Error("Control channel read error", logging.Error(err))
			}
			_ = l.Close()
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var notice acceptNotice
		if err := json.Unmarshal(data, &notice); err != nil {
			l.logger.Warn("Failed to parse control message", logging.Error(err))
			continue
		}
		if notice.Accept == nil || notice.Accept.Address == "" {
			continue
		}

		l.logger.Debug("Received accept notice", logging.String("connection_id", notice.Accept.ID))
		go l.rendezvous(notice.Accept.Address, notice.Accept.ID)
	}
}

// rendezvous dials the address from an accept notice and queues the socket
func (l *AzureRelayListener) rendezvous(address, connectionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), l.dialer.HandshakeTimeout)
	defer cancel()

	ws, resp, err := l.dialer.DialContext(ctx, address, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		l.logger.Warn("Rendezvous connection failed",
			logging.String("connection_id", connectionID),
			logging.Error(err))
		return
	}

	conn := newWSConn(ws)
	select {
	case l.accepted <- conn:
	case <-l.done:
		_ = conn.Close()
	default:
		// Nobody is accepting; refuse rather than let senders pile up
		l.logger.Warn("Accept queue full, dropping connection",
			logging.String("connection_id", connectionID))
		_ = conn.Close()
	}
}

// Close closes the control channel; queued connections are released
func (l *AzureRelayListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		conn := l.controlConn
		l.mu.Unlock()

		close(l.done)
		if conn != nil {
			err = conn.Close()
		}

		for {
			select {
			case queued := <-l.accepted:
				_ = queued.Close()
			default:
				return
			}
		}
	})
	return err
}

// Addr returns the Hybrid Connection address senders use
func (l *AzureRelayListener) Addr() string {
	return fmt.Sprintf("sb://%s/%s", l.namespace, l.hybridConnection)
}

var _ Listener = (*AzureRelayListener)(nil)
