package reader

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex is returned for negative or out of range paragraph
	// indices.
	ErrInvalidIndex = errors.New("invalid paragraph index")

	// ErrClosed is returned by commands issued after Close.
	ErrClosed = errors.New("reader is closed")
)

// PlaybackError reports a failure to produce audio for a paragraph. It
// wraps the synthesis or decode error that caused it.
type PlaybackError struct {
	Index int
	Err   error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback of paragraph %d failed: %v", e.Index+1, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
