package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrChannelBroken is returned after a read or write was interrupted part way
// through a frame. The stream position is unknown so the channel cannot be reused.
var ErrChannelBroken = errors.New("channel broken by interrupted operation")

// Stream is the byte stream a Channel frames messages over.
// Deadlines are used to interrupt blocked operations on cancellation.
type Stream interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// ChannelOptions configures a Channel
type ChannelOptions struct {
	// MaxMessageBytes caps the encoded size of one message (0 means DefaultMaxMessageBytes)
	MaxMessageBytes int
}

// DefaultMaxMessageBytes is used when ChannelOptions.MaxMessageBytes is not set
const DefaultMaxMessageBytes = 64 * 1024

// Channel reads and writes whole chat messages over a Stream.
// One goroutine may read while others write; writes are serialized.
type Channel struct {
	stream  Stream
	reader  *bufio.Reader
	maxSize int

	readMu     sync.Mutex
	readBroken bool

	// writeSem is a one-slot semaphore so that waiting for the write side
	// can be abandoned when a context ends
	writeSem    chan struct{}
	writeBroken bool

	closeOnce sync.Once
	closeErr  error
}

// NewChannel wraps a stream
func NewChannel(stream Stream, opts *ChannelOptions) *Channel {
	if opts == nil {
		opts = &ChannelOptions{}
	}
	maxSize := opts.MaxMessageBytes
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageBytes
	}

	return &Channel{
		stream:   stream,
		reader:   bufio.NewReader(stream),
		maxSize:  maxSize,
		writeSem: make(chan struct{}, 1),
	}
}

// Read returns the next message. It returns (nil, nil) when the peer closed
// the stream cleanly between two messages.
func (c *Channel) Read(ctx context.Context) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.readBroken {
		return nil, ErrChannelBroken
	}

	stop := interruptOnDone(ctx, c.stream.SetReadDeadline)
	m, err := decodeFrame(c.reader, c.maxSize)
	stop()

	if err != nil {
		if ctx.Err() != nil {
			c.readBroken = true
			return nil, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		c.readBroken = true

		var frameErr *FrameError
		if errors.As(err, &frameErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	return &m, nil
}

// Write sends one message. The frame is written in a single call on the
// underlying stream so the peer sees either the whole message or nothing.
func (c *Channel) Write(ctx context.Context, m Message) error {
	frame, err := encodeFrame(m, c.maxSize)
	if err != nil {
		return err
	}

	select {
	case c.writeSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.writeSem }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.writeBroken {
		return ErrChannelBroken
	}

	stop := interruptOnDone(ctx, c.stream.SetWriteDeadline)
	n, err := c.stream.Write(frame)
	stop()

	if err != nil {
		if n > 0 {
			c.writeBroken = true
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close closes the underlying stream. It is safe to call more than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.stream.Close()
	})
	return c.closeErr
}

// interruptOnDone arms a deadline in the past once ctx is done, which makes
// the blocked stream operation return. The returned func disarms it and, if it
// already fired, clears the deadline again.
func interruptOnDone(ctx context.Context, setDeadline func(time.Time) error) func() {
	if ctx.Done() == nil {
		return func() {}
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = setDeadline(time.Now())
	})

	return func() {
		if !stop() {
			<-fired
			_ = setDeadline(time.Time{})
		}
	}
}
