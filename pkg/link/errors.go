package link

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedMarker indicates the frame doesn't start with Marker.
	ErrUnrecognizedMarker = errors.New("unrecognized frame marker")
	// ErrTruncated indicates the frame length doesn't match its content.
	ErrTruncated = errors.New("truncated frame")
)

// FrameError describes a malformed link frame.
type FrameError struct {
	Reason   error
	Marker   byte
	Offset   int
	Expected int
	Actual   int
}

// Error implements error.
func (e *FrameError) Error() string {
	if e.Reason == ErrUnrecognizedMarker {
		return fmt.Sprintf("%v: 0x%02x at offset %d", e.Reason, e.Marker, e.Offset)
	}
	return fmt.Sprintf("%v: expect %d bytes, got %d (offset %d)", e.Reason, e.Expected, e.Actual, e.Offset)
}

// Unwrap allows errors.Is on Reason.
func (e *FrameError) Unwrap() error {
	return e.Reason
}
