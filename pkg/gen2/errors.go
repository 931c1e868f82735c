package gen2

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownVariant indicates the protocol id is not 1, 2 or 7.
	ErrUnknownVariant = errors.New("unknown protocol variant")
	// ErrMalformed indicates the packet length doesn't fit the variant.
	ErrMalformed = errors.New("malformed packet")
)

// DecodeError describes why a packet can't be decoded.
type DecodeError struct {
	Reason   error
	Protocol byte
	Offset   int
	Expected int
	Actual   int
}

// Error implements error.
func (e *DecodeError) Error() string {
	if e.Reason == ErrUnknownVariant {
		return fmt.Sprintf("%v: protocol id %d at offset %d", e.Reason, e.Protocol, e.Offset)
	}
	return fmt.Sprintf("%v: protocol %d expects %d bytes, got %d", e.Reason, e.Protocol, e.Expected, e.Actual)
}

// Unwrap allows errors.Is on Reason.
func (e *DecodeError) Unwrap() error {
	return e.Reason
}
