package session

import (
	"context"
	"errors"

	"github.com/julienstroheker/pairrelay/internal/logging"
)

// Outcome is how a forwarder stopped
type Outcome int

const (
	// OutcomeCompleted means the source reached a clean end of stream
	OutcomeCompleted Outcome = iota
	// OutcomeCancelled means the context ended before or during an operation
	OutcomeCancelled
	// OutcomeFailed means a read or write returned an error
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes one finished forwarder
type Result struct {
	Outcome   Outcome
	Forwarded int
	Err       error
}

// Forwarder copies messages in one direction, from one peer to the other
type Forwarder struct {
	logger *logging.Logger
}

// NewForwarder creates a forwarder; logger may be nil
func NewForwarder(logger *logging.Logger) *Forwarder {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Forwarder{logger: logger}
}

// Run forwards messages from src to dst, in order and unchanged, until src ends,
// an operation fails, or ctx is cancelled. No operation starts once ctx is done.
func (f *Forwarder) Run(ctx context.Context, src Reader, dst Writer) Result {
	var res Result

	for {
		if ctx.Err() != nil {
			res.Outcome = OutcomeCancelled
			return res
		}

		m, err := src.Read(ctx)
		if err != nil {
			return f.stop(ctx, res, "read", err)
		}
		if m == nil {
			res.Outcome = OutcomeCompleted
			return res
		}

		if ctx.Err() != nil {
			res.Outcome = OutcomeCancelled
			return res
		}

		f.logger.Debug("Forwarding message",
			logging.String("sender", m.Sender),
			logging.Time("time", m.Time),
			logging.String("content", m.Content))

		if err := dst.Write(ctx, *m); err != nil {
			return f.stop(ctx, res, "write", err)
		}
		res.Forwarded++
	}
}

func (f *Forwarder) stop(ctx context.Context, res Result, op string, err error) Result {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		res.Outcome = OutcomeCancelled
		return res
	}

	f.logger.Debug("Forwarder stopped on error",
		logging.String("op", op),
		logging.Error(err))
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}
