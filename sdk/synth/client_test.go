package synth

import (
	"context"
	"errors"
	"testing"

	"github.com/leandrodaf/midisynth/internal/engine/midiout"
	"github.com/leandrodaf/midisynth/internal/enginetest"
	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/internal/output"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

func newSynth(t *testing.T, extra ...contracts.Option) (*Synthesizer, *enginetest.Engine) {
	t.Helper()
	eng := enginetest.NewEngine()
	opts := append([]contracts.Option{
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithEngine(eng),
		contracts.WithSettleDelay(0),
	}, extra...)
	s, err := NewSynthesizer(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s, eng
}

func TestDefaultLoaderReadsManifests(t *testing.T) {
	s, _ := newSynth(t)
	ctx := context.Background()
	id, err := s.LoadSoundfont(ctx, []byte("name: GM\n"), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	names, err := s.Instruments(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 16 || names[0] != "Acoustic Grand Piano" {
		t.Errorf("instruments = %v", names)
	}
}

func TestLifecycle(t *testing.T) {
	level := output.NewMemory(0.8)
	s, eng := newSynth(t, contracts.WithBankLoader(enginetest.Loader{}), contracts.WithOutputLevel(level))
	ctx := context.Background()

	id, err := s.LoadSoundfont(ctx, enginetest.BankData("a", 4), 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !s.IsInitialized(id) {
		t.Fatal("not initialized after load")
	}
	if err := s.PlayNote(id, 0, 60, 90); err != nil {
		t.Fatal(err)
	}
	if err := s.ChangeSoundfont(ctx, id, enginetest.BankData("b", 4)); err != nil {
		t.Fatal(err)
	}
	if err := s.ReloadSoundfont(ctx, id, enginetest.BankData("c", 4), 0, 5); err != nil {
		t.Fatal(err)
	}
	if level.Level() != 0.8 {
		t.Errorf("output level %v after loads", level.Level())
	}
	if err := s.Unload(id); err != nil {
		t.Fatal(err)
	}
	if err := s.Unload(id); err != nil {
		t.Errorf("second unload = %v", err)
	}
	if err := s.PlayNote(id, 0, 60, 90); !errors.Is(err, contracts.ErrNotFound) {
		t.Errorf("play after unload = %v", err)
	}

	s.Create()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if len(s.Instances()) != 0 || eng.Live() != 0 {
		t.Errorf("instances %v, live handles %d after Close", s.Instances(), eng.Live())
	}
}

func TestNewEngineByNameUnknown(t *testing.T) {
	opts := &contracts.Options{Logger: logger.NewNopLogger()}
	if _, err := NewEngineByName("fluidsynth", opts); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("err = %v", err)
	}
	if _, err := ListDestinations("fluidsynth"); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("err = %v", err)
	}
}

type unpluggedPort struct{}

func (unpluggedPort) Send([]byte) error { return nil }
func (unpluggedPort) Close() error      { return errUnplugged }

var errUnplugged = errors.New("device unplugged")

func TestCloseReportsEngineTeardown(t *testing.T) {
	log := logger.NewNopLogger()
	eng := midiout.New("test", func() (midiout.Port, error) { return unpluggedPort{}, nil }, log)
	s, err := NewSynthesizer(
		contracts.WithLogger(log),
		contracts.WithEngine(eng),
		contracts.WithBankLoader(enginetest.Loader{}),
		contracts.WithSettleDelay(0),
	)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := s.LoadSoundfont(ctx, enginetest.BankData("kit", 2), 0, 0); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Close(); !errors.Is(err, errUnplugged) {
		t.Errorf("Close = %v, want %v", err, errUnplugged)
	}
	if len(s.Instances()) != 0 {
		t.Errorf("instances left: %v", s.Instances())
	}
}
