//go:build headless

package output

import (
	"errors"
	"io"
)

// StreamOptions configures NewStream.
type StreamOptions struct {
	SampleRate   int
	ChannelCount int
	Source       io.Reader
}

// Stream is unavailable in headless builds.
type Stream struct{ Memory }

// NewStream always fails in headless builds.
func NewStream(StreamOptions) (*Stream, error) {
	return nil, errors.New("output: audio stream not available in headless build")
}

// Close is a no-op.
func (s *Stream) Close() error { return nil }
