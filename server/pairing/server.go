package pairing

import (
	"context"
	"errors"
	"fmt"

	"github.com/julienstroheker/pairrelay/internal/chat"
	"github.com/julienstroheker/pairrelay/internal/logging"
	"github.com/julienstroheker/pairrelay/internal/transport"
	"github.com/julienstroheker/pairrelay/server/session"
)

// ErrListenerFailure wraps an accept error that was not caused by shutdown
var ErrListenerFailure = errors.New("listener failure")

// SessionRunner runs one session between two peers and closes both when done.
// *session.Coordinator implements it.
type SessionRunner interface {
	Run(ctx context.Context, p1, p2 *session.Peer) session.Summary
}

// Options configures a Server
type Options struct {
	// Listener supplies peer connections (required)
	Listener transport.Listener

	// Sessions runs each pair; defaults to a session.Coordinator
	Sessions SessionRunner

	// Channel configures message framing for every peer
	Channel *chat.ChannelOptions

	// Logger is optional
	Logger *logging.Logger
}

// Server pairs peers two at a time and runs one session per pair
type Server struct {
	listener transport.Listener
	sessions SessionRunner
	channel  *chat.ChannelOptions
	logger   *logging.Logger
}

// NewServer creates a Server
func NewServer(opts *Options) (*Server, error) {
	if opts == nil {
		return nil, errors.New("options cannot be nil")
	}
	if opts.Listener == nil {
		return nil, errors.New("listener is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewCoordinator(&session.CoordinatorOptions{Logger: logger})
	}

	return &Server{
		listener: opts.Listener,
		sessions: sessions,
		channel:  opts.Channel,
		logger:   logger,
	}, nil
}

// Run accepts two peers, runs their session to completion and repeats.
// It returns nil once ctx is cancelled and wraps any other accept failure in
// ErrListenerFailure. Sessions run one at a time.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Relay listening", logging.String("addr", s.listener.Addr()))

	for pair := 1; ; pair++ {
		s.logger.Info("Waiting for first peer", logging.Int("pair", pair))
		first, err := s.listener.Accept(ctx)
		if err != nil {
			return s.acceptError(ctx, err)
		}
		s.logger.Info("First peer connected",
			logging.Int("pair", pair),
			logging.String("remote_addr", remoteAddr(first)))

		s.logger.Info("Waiting for second peer", logging.Int("pair", pair))
		second, err := s.listener.Accept(ctx)
		if err != nil {
			_ = first.Close()
			return s.acceptError(ctx, err)
		}
		s.logger.Info("Second peer connected",
			logging.Int("pair", pair),
			logging.String("remote_addr", remoteAddr(second)))

		s.runSession(ctx, pair, first, second)
	}
}

func (s *Server) acceptError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		s.logger.Info("Relay stopped", logging.String("reason", ctx.Err().Error()))
		return nil
	}

	s.logger.Error("Accept failed", logging.Error(err))
	return fmt.Errorf("%w: %w", ErrListenerFailure, err)
}

// runSession never lets a broken session take the accept loop down
func (s *Server) runSession(ctx context.Context, pair int, a, b transport.Conn) {
	p1 := session.NewPeer(a, s.channel)
	p2 := session.NewPeer(b, s.channel)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Session panicked",
				logging.Int("pair", pair),
				logging.Any("panic", r))
			_ = p1.Close()
			_ = p2.Close()
		}
	}()

	summary := s.sessions.Run(ctx, p1, p2)
	s.logger.Debug("Pair finished",
		logging.Int("pair", pair),
		logging.String("session_id", summary.SessionID),
		logging.String("winner", summary.Winner.String()))
}

func remoteAddr(c transport.Conn) string {
	if addr := c.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
