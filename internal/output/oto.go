//go:build !headless

package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Stream is an oto playback stream whose player volume is the output level.
// It plays whatever its source renders, silence by default.
type Stream struct {
	ctx    *oto.Context
	player *oto.Player
	mu     sync.Mutex
}

// StreamOptions configures NewStream.
type StreamOptions struct {
	SampleRate   int
	ChannelCount int
	// Source renders signed 16-bit little-endian frames. Nil plays silence.
	Source io.Reader
}

// NewStream opens the default audio device and starts playing.
func NewStream(opts StreamOptions) (*Stream, error) {
	if opts.SampleRate == 0 {
		opts.SampleRate = 44100
	}
	if opts.ChannelCount == 0 {
		opts.ChannelCount = 2
	}
	src := opts.Source
	if src == nil {
		src = Silence{}
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   opts.SampleRate,
		ChannelCount: opts.ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("output: open audio device: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(src)
	player.Play()
	return &Stream{ctx: ctx, player: player}, nil
}

// Level implements contracts.OutputLevel.
func (s *Stream) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return 0
	}
	return s.player.Volume()
}

// SetLevel implements contracts.OutputLevel.
func (s *Stream) SetLevel(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.SetVolume(clamp(level))
	}
}

// Close stops playback.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	return err
}
