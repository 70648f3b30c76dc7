package chat

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// headerSize is the length of the big-endian size prefix in front of every frame
const headerSize = 4

// ErrFrameTooLarge is returned when a frame exceeds the configured maximum size
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// FrameError reports a frame that could not be decoded
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed frame: %v", e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// encodeFrame serializes m as a length-prefixed JSON frame
func encodeFrame(m Message, maxSize int) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	if maxSize > 0 && len(payload) > maxSize {
		return nil, ErrFrameTooLarge
	}

	frame := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[headerSize:], payload)
	return frame, nil
}

// decodeFrame reads one frame from r. It returns io.EOF only when the stream
// ends cleanly on a frame boundary.
func decodeFrame(r io.Reader, maxSize int) (Message, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if maxSize > 0 && size > uint32(maxSize) {
		return Message{}, &FrameError{Err: ErrFrameTooLarge}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Message{}, err
	}

	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, &FrameError{Err: err}
	}
	return m, nil
}
