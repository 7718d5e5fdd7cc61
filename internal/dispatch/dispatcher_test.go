package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/midisynth/internal/enginetest"
	"github.com/leandrodaf/midisynth/internal/instance"
	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

type levelOutput struct {
	mu    sync.Mutex
	level float64
	sets  []float64
}

func (o *levelOutput) Level() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

func (o *levelOutput) SetLevel(l float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.level = l
	o.sets = append(o.sets, l)
}

func newDispatcher(t *testing.T) (*Dispatcher, *enginetest.Engine, *levelOutput) {
	t.Helper()
	eng := enginetest.NewEngine()
	out := &levelOutput{level: 0.7}
	opts := &contracts.Options{
		Logger:     logger.NewNopLogger(),
		Engine:     eng,
		BankLoader: enginetest.Loader{},
		Output:     out,
	}
	contracts.WithSettleDelay(0)(opts)
	return New(opts), eng, out
}

func mustLoad(t *testing.T, d *Dispatcher, name string, presets int) contracts.InstanceID {
	t.Helper()
	res, err := d.Dispatch(context.Background(), CmdLoadSoundfont, map[string]any{
		"data": enginetest.BankData(name, presets),
	})
	if err != nil {
		t.Fatalf("loadSoundfont: %v", err)
	}
	return contracts.InstanceID(res.(int))
}

func TestUnknownIdsAreNotFound(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()
	const missing = 42
	cmds := []struct {
		name string
		args map[string]any
	}{
		{CmdChangeSoundfont, map[string]any{"sfId": missing, "data": []byte("x:y")}},
		{CmdSelectInstrument, map[string]any{"sfId": missing, "channel": 0, "program": 1}},
		{CmdPlayNote, map[string]any{"sfId": missing, "channel": 0, "key": 60, "velocity": 100}},
		{CmdStopNote, map[string]any{"sfId": missing, "channel": 0, "key": 60}},
		{CmdStopAllNotes, map[string]any{"sfId": missing}},
		{CmdUnloadSoundfont, map[string]any{"sfId": missing}},
		{CmdDispose, map[string]any{"sfId": missing}},
		{CmdGetInstruments, map[string]any{"sfId": missing}},
		{CmdLoadSoundfont, map[string]any{"sfId": missing, "data": []byte("x:y")}},
	}
	for _, c := range cmds {
		t.Run(c.name, func(t *testing.T) {
			_, err := d.Dispatch(ctx, c.name, c.args)
			if !errors.Is(err, contracts.ErrNotFound) {
				t.Errorf("err = %v, want NOT_FOUND", err)
			}
		})
	}
	res, err := d.Dispatch(ctx, CmdIsInitialized, map[string]any{"sfId": missing})
	if err != nil || res != false {
		t.Errorf("isInitialized = %v, %v; want false, nil", res, err)
	}
}

func TestLoadThenQuery(t *testing.T) {
	d, _, out := newDispatcher(t)
	ctx := context.Background()
	id := mustLoad(t, d, "gm", 40)

	res, err := d.Dispatch(ctx, CmdIsInitialized, map[string]any{"sfId": int(id)})
	if err != nil || res != true {
		t.Fatalf("isInitialized = %v, %v", res, err)
	}
	res, err = d.Dispatch(ctx, CmdGetInstruments, map[string]any{"sfId": int(id)})
	if err != nil {
		t.Fatal(err)
	}
	names := res.([]string)
	if len(names) == 0 || len(names) > 16 {
		t.Errorf("instruments len = %d", len(names))
	}
	if got := out.sets; !reflect.DeepEqual(got, []float64{0, 0.7}) {
		t.Errorf("output levels = %v, want mute then restore", got)
	}
	res, err = d.Dispatch(ctx, CmdIsInitialized, nil)
	if err != nil || res != true {
		t.Errorf("isInitialized without id = %v, %v", res, err)
	}
}

func TestPlayThenStop(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()
	id := int(mustLoad(t, d, "gm", 4))

	res, err := d.Dispatch(ctx, CmdPlayNote, map[string]any{"sfId": id, "channel": 1, "key": 64, "velocity": 90})
	if err != nil || res != "Playing: 64" {
		t.Fatalf("playNote = %v, %v", res, err)
	}
	if _, err := d.Dispatch(ctx, CmdStopNote, map[string]any{"sfId": id, "channel": 1, "key": 64}); err != nil {
		t.Fatal(err)
	}
	inst, _ := d.Registry().Get(contracts.InstanceID(id))
	st, _ := inst.ChannelState(1)
	if st.IsActive(64) {
		t.Error("key 64 still active")
	}
}

func TestStopNeverPlayed(t *testing.T) {
	d, _, _ := newDispatcher(t)
	id := int(mustLoad(t, d, "gm", 4))
	if _, err := d.Dispatch(context.Background(), CmdStopNote, map[string]any{"sfId": id, "channel": 0, "key": 5}); err != nil {
		t.Errorf("stopNote = %v", err)
	}
}

func TestStopAllNotes(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()
	id := int(mustLoad(t, d, "gm", 4))
	for _, k := range []int{10, 64, 127} {
		if _, err := d.Dispatch(ctx, CmdPlayNote, map[string]any{"sfId": id, "channel": 0, "key": k, "velocity": 100}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := d.Dispatch(ctx, CmdStopAllNotes, map[string]any{"sfId": id}); err != nil {
		t.Fatal(err)
	}
	inst, _ := d.Registry().Get(contracts.InstanceID(id))
	for ch := 0; ch < 16; ch++ {
		st, _ := inst.ChannelState(ch)
		if n := len(st.ActiveNotes()); n != 0 {
			t.Errorf("channel %d: %d active notes", ch, n)
		}
	}
}

func TestSelectInstrumentOutOfRange(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()
	id := int(mustLoad(t, d, "gm", 4))
	if _, err := d.Dispatch(ctx, CmdSelectInstrument, map[string]any{"sfId": id, "channel": 0, "bank": 0, "program": 7}); err != nil {
		t.Fatal(err)
	}

	_, err := d.Dispatch(ctx, CmdSelectInstrument, map[string]any{"sfId": id, "channel": 0, "bank": 0, "program": 999})
	if !errors.Is(err, contracts.ErrInvalidArgument) {
		t.Fatalf("err = %v, want INVALID_ARGUMENT", err)
	}
	inst, _ := d.Registry().Get(contracts.InstanceID(id))
	st, _ := inst.ChannelState(0)
	if st.Program != 7 || st.BankSelect != 0 {
		t.Errorf("channel 0 = %+v, want program 7", st)
	}
}

func TestDisposeTwice(t *testing.T) {
	d, eng, _ := newDispatcher(t)
	ctx := context.Background()
	id := int(mustLoad(t, d, "gm", 4))

	res, err := d.Dispatch(ctx, CmdDispose, map[string]any{"sfId": id})
	if err != nil || res != "Synthesizer disposed" {
		t.Fatalf("first dispose = %v, %v", res, err)
	}
	res, err = d.Dispatch(ctx, CmdDispose, map[string]any{"sfId": id})
	if err != nil || res != "Synthesizer already disposed" {
		t.Fatalf("second dispose = %v, %v", res, err)
	}
	if eng.Live() != 0 {
		t.Error("engine handle leaked")
	}
	if _, err := d.Dispatch(ctx, CmdPlayNote, map[string]any{"sfId": id, "channel": 0, "key": 1, "velocity": 1}); !errors.Is(err, contracts.ErrNotFound) {
		t.Errorf("playNote after dispose = %v, want NOT_FOUND", err)
	}
}

func TestDisposeAll(t *testing.T) {
	d, eng, _ := newDispatcher(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		mustLoad(t, d, "gm", 2)
	}
	for i := 0; i < 2; i++ {
		if _, err := d.Dispatch(ctx, CmdDispose, nil); err != nil {
			t.Fatalf("dispose #%d: %v", i, err)
		}
	}
	if d.Registry().Len() != 0 || eng.Live() != 0 {
		t.Errorf("registry len %d, live handles %d", d.Registry().Len(), eng.Live())
	}
}

func TestValidationOrder(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()
	unloaded := int(d.Create())

	tests := []struct {
		name   string
		method string
		args   map[string]any
		want   error
	}{
		{"unknown command", "explode", map[string]any{"sfId": 999}, contracts.ErrInvalidArgument},
		{"missing key beats unknown id", CmdPlayNote, map[string]any{"sfId": 999, "channel": 0, "velocity": 1}, contracts.ErrInvalidArgument},
		{"bad channel beats unknown id", CmdStopNote, map[string]any{"sfId": 999, "channel": 16, "key": 1}, contracts.ErrInvalidArgument},
		{"string key", CmdPlayNote, map[string]any{"sfId": unloaded, "channel": 0, "key": "60", "velocity": 1}, contracts.ErrInvalidArgument},
		{"fractional velocity", CmdPlayNote, map[string]any{"sfId": unloaded, "channel": 0, "key": 60, "velocity": 1.5}, contracts.ErrInvalidArgument},
		{"velocity 128", CmdPlayNote, map[string]any{"sfId": unloaded, "channel": 0, "key": 60, "velocity": 128}, contracts.ErrInvalidArgument},
		{"unknown id beats state", CmdStopAllNotes, map[string]any{"sfId": 999}, contracts.ErrNotFound},
		{"unloaded instance", CmdPlayNote, map[string]any{"sfId": unloaded, "channel": 0, "key": 60, "velocity": 1}, contracts.ErrNotInitialized},
		{"instruments on unloaded", CmdGetInstruments, map[string]any{"sfId": unloaded}, contracts.ErrNotInitialized},
		{"missing source", CmdLoadSoundfont, map[string]any{}, contracts.ErrInvalidArgument},
		{"empty data", CmdLoadSoundfont, map[string]any{"data": []byte{}}, contracts.ErrInvalidArgument},
		{"source beats unknown id", CmdChangeSoundfont, map[string]any{"sfId": 999}, contracts.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(ctx, tt.method, tt.args)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJSONNumbersAccepted(t *testing.T) {
	d, _, _ := newDispatcher(t)
	id := mustLoad(t, d, "gm", 2)
	_, err := d.Dispatch(context.Background(), CmdPlayNote, map[string]any{
		"sfId": float64(id), "channel": float64(0), "key": float64(60), "velocity": float64(100),
	})
	if err != nil {
		t.Errorf("playNote with float64 args = %v", err)
	}
}

func TestLoadFailures(t *testing.T) {
	d, eng, out := newDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, CmdLoadSoundfont, map[string]any{"data": []byte("corrupt")})
	if !errors.Is(err, contracts.ErrLoadFailed) {
		t.Fatalf("err = %v, want LOAD_FAILED", err)
	}
	if d.Registry().Len() != 0 {
		t.Error("failed first load left an instance behind")
	}
	if out.Level() != 0.7 {
		t.Errorf("output level = %v after failed load", out.Level())
	}

	_, err = d.Dispatch(ctx, CmdLoadSoundfont, map[string]any{"path": filepath.Join(t.TempDir(), "missing.sf2")})
	if !errors.Is(err, contracts.ErrLoadFailed) {
		t.Errorf("missing path = %v, want LOAD_FAILED", err)
	}

	id := int(mustLoad(t, d, "piano", 2))
	eng.FailAttach(errors.New("no voices left"))
	_, err = d.Dispatch(ctx, CmdChangeSoundfont, map[string]any{"sfId": id, "data": enginetest.BankData("organ", 2)})
	if !errors.Is(err, contracts.ErrLoadFailed) {
		t.Fatalf("change = %v, want LOAD_FAILED", err)
	}
	names, err := d.Instruments(contracts.InstanceID(id))
	if err != nil || names[0] != "piano-0" {
		t.Errorf("instruments after failed change = %v, %v", names, err)
	}
}

func TestLoadFromPath(t *testing.T) {
	d, _, _ := newDispatcher(t)
	path := filepath.Join(t.TempDir(), "bank.sf2")
	if err := os.WriteFile(path, enginetest.BankData("file", 3), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := d.Dispatch(context.Background(), CmdLoadSoundfont, map[string]any{"path": path, "bank": 0, "program": 3})
	if err != nil {
		t.Fatal(err)
	}
	inst, _ := d.Registry().Get(contracts.InstanceID(res.(int)))
	st, _ := inst.ChannelState(9)
	if st.Program != 3 {
		t.Errorf("default program = %d, want 3", st.Program)
	}
}

func TestConcurrentLoadsSameIdDoNotInterleave(t *testing.T) {
	d, _, _ := newDispatcher(t)
	id := mustLoad(t, d, "init", 2)

	var wg sync.WaitGroup
	for i, name := range []string{"alpha", "beta"} {
		wg.Add(1)
		go func(name string, program int) {
			defer wg.Done()
			_, err := d.LoadSoundfont(context.Background(), Source{Data: enginetest.BankData(name, 3)}, &id,
				instance.Program{Program: program})
			if err != nil {
				t.Errorf("load %s: %v", name, err)
			}
		}(name, i+1)
	}
	wg.Wait()

	names, err := d.Instruments(id)
	if err != nil {
		t.Fatal(err)
	}
	wantProgram := 1
	if strings.HasPrefix(names[0], "beta") {
		wantProgram = 2
	}
	inst, _ := d.Registry().Get(id)
	for ch := 0; ch < 16; ch++ {
		st, _ := inst.ChannelState(ch)
		if st.Program != wantProgram {
			t.Fatalf("channel %d program %d, bank %v: mixed state", ch, st.Program, names)
		}
	}
}

func TestLoadDoesNotBlockOtherInstances(t *testing.T) {
	d, eng, _ := newDispatcher(t)
	other := mustLoad(t, d, "fast", 2)

	entered := make(chan struct{})
	release := make(chan struct{})
	eng.OnAttach(func(b *contracts.Bank) {
		if b.Name == "slow" {
			close(entered)
			<-release
		}
	})
	loaded := make(chan error, 1)
	go func() {
		_, err := d.LoadSoundfont(context.Background(), Source{Data: enginetest.BankData("slow", 2)}, nil, instance.Program{})
		loaded <- err
	}()
	<-entered

	done := make(chan error, 1)
	go func() { done <- d.PlayNote(other, 0, 60, 100) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("playNote on other instance: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("playNote blocked behind a load on another instance")
	}
	close(release)
	if err := <-loaded; err != nil {
		t.Errorf("slow load: %v", err)
	}
}

func TestEngineErrorsAreTranslated(t *testing.T) {
	d, eng, _ := newDispatcher(t)
	id := mustLoad(t, d, "gm", 2)
	eng.FailNoteOn(errors.New("alsa: device busy"))

	err := d.PlayNote(id, 0, 60, 100)
	if !errors.Is(err, contracts.ErrEngineUnavailable) {
		t.Fatalf("err = %v, want ENGINE_UNAVAILABLE", err)
	}
	var ce *contracts.Error
	if !errors.As(err, &ce) {
		t.Fatalf("error is %T, want *contracts.Error", err)
	}
	if errors.Unwrap(err) != nil {
		t.Error("collaborator error leaked through Unwrap")
	}
}

func TestCreateAndList(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()
	a, _ := d.Dispatch(ctx, CmdCreate, nil)
	b, _ := d.Dispatch(ctx, CmdCreate, nil)
	res, err := d.Dispatch(ctx, CmdListInstances, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{a.(int), b.(int)}; !reflect.DeepEqual(res, want) {
		t.Errorf("list = %v, want %v", res, want)
	}
	res, _ = d.Dispatch(ctx, CmdIsInitialized, nil)
	if res != false {
		t.Error("unloaded instances reported initialized")
	}
}

func TestInstanceResolvedBeforeUnloadIsNotInitialized(t *testing.T) {
	d, _, _ := newDispatcher(t)
	id := mustLoad(t, d, "piano", 2)
	inst, err := d.Registry().Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Unload(id); err != nil {
		t.Fatal(err)
	}

	// A command that looked the instance up before the unload finishes on
	// the disposed instance; one that looks it up afterwards misses it.
	if err := inst.PlayNote(0, 60, 100); !errors.Is(err, contracts.ErrNotInitialized) {
		t.Errorf("late command = %v, want NOT_INITIALIZED", err)
	}
	if err := d.PlayNote(id, 0, 60, 100); !errors.Is(err, contracts.ErrNotFound) {
		t.Errorf("command after unload = %v, want NOT_FOUND", err)
	}
}
