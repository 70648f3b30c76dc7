package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/julienstroheker/pairrelay/internal/chat"
	"github.com/julienstroheker/pairrelay/internal/logging"
)

// DefaultNotifyTimeout bounds each shutdown notice
const DefaultNotifyTimeout = 300 * time.Millisecond

// Winner is the first event that ended a session
type Winner int

const (
	// WinnerFirst means the forwarder reading from the first peer stopped first
	WinnerFirst Winner = iota
	// WinnerSecond means the forwarder reading from the second peer stopped first
	WinnerSecond
	// WinnerShutdown means the outer context was cancelled first
	WinnerShutdown
)

func (w Winner) String() string {
	switch w {
	case WinnerFirst:
		return "first"
	case WinnerSecond:
		return "second"
	case WinnerShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Summary reports how a session ended
type Summary struct {
	SessionID string
	Winner    Winner
	// First forwards from the first peer to the second, Second the other way
	First    Result
	Second   Result
	Duration time.Duration
}

// CoordinatorOptions configures a Coordinator
type CoordinatorOptions struct {
	// NotifyTimeout bounds each "Server shutting down." notice (0 means DefaultNotifyTimeout)
	NotifyTimeout time.Duration

	// Logger is optional
	Logger *logging.Logger
}

// Coordinator runs sessions between two peers
type Coordinator struct {
	notifyTimeout time.Duration
	logger        *logging.Logger
}

// NewCoordinator creates a Coordinator
func NewCoordinator(opts *CoordinatorOptions) *Coordinator {
	if opts == nil {
		opts = &CoordinatorOptions{}
	}
	timeout := opts.NotifyTimeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Coordinator{
		notifyTimeout: timeout,
		logger:        logger,
	}
}

// Run relays messages between p1 and p2 until one side stops or ctx is cancelled.
// Both peers are closed when Run returns, whatever ended the session.
func (c *Coordinator) Run(ctx context.Context, p1, p2 *Peer) Summary {
	start := time.Now()
	summary := Summary{SessionID: uuid.NewString()}
	logger := c.logger.With(logging.String("session_id", summary.SessionID))

	logger.Info("Session started",
		logging.String("first_peer", p1.RemoteAddr),
		logging.String("second_peer", p2.RemoteAddr))

	// Forwarders outlive ctx so that shutdown notices can be sent before they stop
	fwdCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	first := c.startForwarder(fwdCtx, logger.With(logging.String("direction", "first->second")), p1, p2)
	second := c.startForwarder(fwdCtx, logger.With(logging.String("direction", "second->first")), p2, p1)

	var firstDone, secondDone bool
	select {
	case summary.First = <-first:
		summary.Winner = WinnerFirst
		firstDone = true
	case summary.Second = <-second:
		summary.Winner = WinnerSecond
		secondDone = true
	case <-ctx.Done():
		summary.Winner = WinnerShutdown
	}

	switch summary.Winner {
	case WinnerShutdown:
		c.notifyShutdown(logger, p1, p2)
	case WinnerFirst:
		c.notify(ctx, logger, p2, chat.NoticePeerDisconnected)
	case WinnerSecond:
		c.notify(ctx, logger, p1, chat.NoticePeerDisconnected)
	}

	cancel()
	if !firstDone {
		summary.First = <-first
	}
	if !secondDone {
		summary.Second = <-second
	}
	c.teardown(logger, p1, p2)

	summary.Duration = time.Since(start)
	c.logSummary(logger, summary)
	return summary
}

func (c *Coordinator) startForwarder(ctx context.Context, logger *logging.Logger, src, dst *Peer) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Forwarder panicked", logging.Any("panic", r))
				done <- Result{Outcome: OutcomeFailed, Err: fmt.Errorf("forwarder panic: %v", r)}
			}
		}()
		done <- NewForwarder(logger).Run(ctx, src.Endpoint, dst.Endpoint)
	}()
	return done
}

// notifyShutdown tells both peers the server is going away. Each notice gets
// its own deadline since ctx is already cancelled.
func (c *Coordinator) notifyShutdown(logger *logging.Logger, peers ...*Peer) {
	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), c.notifyTimeout)
			defer cancel()
			c.notify(ctx, logger, p, chat.NoticeShuttingDown)
		})
	}
	wg.Wait()
}

func (c *Coordinator) notify(ctx context.Context, logger *logging.Logger, p *Peer, notice string) {
	if err := p.Endpoint.Write(ctx, chat.SystemMessage(notice)); err != nil {
		logger.Warn("Failed to notify peer",
			logging.String("peer", p.RemoteAddr),
			logging.String("notice", notice),
			logging.Error(err))
	}
}

func (c *Coordinator) teardown(logger *logging.Logger, peers ...*Peer) {
	for _, p := range peers {
		if err := p.Close(); err != nil {
			logger.Debug("Error closing peer",
				logging.String("peer", p.RemoteAddr),
				logging.Error(err))
		}
	}
}

func (c *Coordinator) logSummary(logger *logging.Logger, s Summary) {
	for name, r := range map[string]Result{"first->second": s.First, "second->first": s.Second} {
		if r.Outcome == OutcomeFailed {
			logger.Warn("Forwarder failed",
				logging.String("direction", name),
				logging.Error(r.Err))
		}
	}

	logger.Info("Session ended",
		logging.String("winner", s.Winner.String()),
		logging.String("first_outcome", s.First.Outcome.String()),
		logging.Int("first_forwarded", s.First.Forwarded),
		logging.String("second_outcome", s.Second.Outcome.String()),
		logging.Int("second_forwarded", s.Second.Forwarded),
		logging.Duration("duration", s.Duration))
}
