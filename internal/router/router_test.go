package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

type fakeInput struct {
	started chan chan<- contracts.NoteEvent
	stopped int
	stopErr error
}

func newFakeInput() *fakeInput {
	return &fakeInput{started: make(chan chan<- contracts.NoteEvent, 1)}
}

func (f *fakeInput) Stop() error                                  { f.stopped++; return f.stopErr }
func (f *fakeInput) ListDevices() ([]contracts.DeviceInfo, error) { return nil, nil }
func (f *fakeInput) SelectDevice(int) error                       { return nil }
func (f *fakeInput) StartCapture(ch chan<- contracts.NoteEvent)   { f.started <- ch }

type call struct {
	play         bool
	id           contracts.InstanceID
	ch, key, vel int
}

type fakePlayer struct {
	mu    sync.Mutex
	calls []call
	fail  error
	seen  chan struct{}
}

func (p *fakePlayer) record(c call) error {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
	p.seen <- struct{}{}
	return p.fail
}

func (p *fakePlayer) PlayNote(id contracts.InstanceID, ch, key, vel int) error {
	return p.record(call{play: true, id: id, ch: ch, key: key, vel: vel})
}

func (p *fakePlayer) StopNote(id contracts.InstanceID, ch, key int) error {
	return p.record(call{id: id, ch: ch, key: key})
}

func TestRoutesNotes(t *testing.T) {
	in := newFakeInput()
	player := &fakePlayer{seen: make(chan struct{}, 8), fail: errors.New("not ready")}
	r := New(in, player, 7, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	events := <-in.started
	events <- contracts.NoteEvent{Command: contracts.NoteOn, Channel: 2, Note: 60, Velocity: 90}
	events <- contracts.NoteEvent{Command: contracts.NoteOn, Channel: 2, Note: 60, Velocity: 0}
	events <- contracts.NoteEvent{Command: contracts.NoteOff, Channel: 9, Note: 36, Velocity: 64}
	for i := 0; i < 3; i++ {
		select {
		case <-player.seen:
		case <-time.After(time.Second):
			t.Fatal("event not routed")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}

	want := []call{
		{play: true, id: 7, ch: 2, key: 60, vel: 90},
		{id: 7, ch: 2, key: 60},
		{id: 7, ch: 9, key: 36},
	}
	if len(player.calls) != len(want) {
		t.Fatalf("calls = %+v", player.calls)
	}
	for i := range want {
		if player.calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, player.calls[i], want[i])
		}
	}
	if in.stopped != 1 {
		t.Errorf("input stopped %d times", in.stopped)
	}
}

func TestRunDeadlineCombinesStopError(t *testing.T) {
	in := newFakeInput()
	in.stopErr = errors.New("device gone")
	r := New(in, &fakePlayer{seen: make(chan struct{}, 1)}, 1, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := r.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, in.stopErr) {
		t.Errorf("Run = %v, want deadline and stop error", err)
	}
}
