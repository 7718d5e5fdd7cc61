package dispatch

import (
	"context"

	"github.com/leandrodaf/midisynth/internal/instance"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Argument names shared by every command.
const (
	argID       = "sfId"
	argChannel  = "channel"
	argBank     = "bank"
	argProgram  = "program"
	argKey      = "key"
	argVelocity = "velocity"
)

func commandTable() map[string]handler {
	return map[string]handler{
		CmdCreate:           handleCreate,
		CmdListInstances:    handleList,
		CmdLoadSoundfont:    handleLoad,
		CmdChangeSoundfont:  handleChange,
		CmdSelectInstrument: handleSelect,
		CmdPlayNote:         handlePlay,
		CmdStopNote:         handleStop,
		CmdStopAllNotes:     handleStopAll,
		CmdUnloadSoundfont:  handleUnload,
		CmdDispose:          handleDispose,
		CmdIsInitialized:    handleIsInitialized,
		CmdGetInstruments:   handleInstruments,
	}
}

func handleCreate(d *Dispatcher, _ context.Context, _ Args) (any, error) {
	return int(d.Create()), nil
}

func handleList(d *Dispatcher, _ context.Context, _ Args) (any, error) {
	ids := d.registry.List()
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out, nil
}

func handleLoad(d *Dispatcher, ctx context.Context, args Args) (any, error) {
	src, err := args.source()
	if err != nil {
		return nil, err
	}
	target, hasTarget, err := args.optionalID(argID)
	if err != nil {
		return nil, err
	}
	bank, err := args.optionalInt(argBank, d.defaults.Bank, 0, d.caps.MaxBank)
	if err != nil {
		return nil, err
	}
	program, err := args.optionalInt(argProgram, d.defaults.Program, 0, d.caps.MaxProgram)
	if err != nil {
		return nil, err
	}
	var tp *contracts.InstanceID
	if hasTarget {
		tp = &target
	}
	id, err := d.LoadSoundfont(ctx, src, tp, instance.Program{Bank: bank, Program: program})
	if err != nil {
		return nil, err
	}
	return int(id), nil
}

func handleChange(d *Dispatcher, ctx context.Context, args Args) (any, error) {
	src, err := args.source()
	if err != nil {
		return nil, err
	}
	id, err := args.requiredID(argID)
	if err != nil {
		return nil, err
	}
	if err := d.ChangeSoundfont(ctx, id, src); err != nil {
		return nil, err
	}
	return "Soundfont changed successfully", nil
}

func handleSelect(d *Dispatcher, _ context.Context, args Args) (any, error) {
	id, err := args.requiredID(argID)
	if err != nil {
		return nil, err
	}
	ch, err := args.requiredInt(argChannel, 0, d.caps.Channels-1)
	if err != nil {
		return nil, err
	}
	bank, err := args.optionalInt(argBank, 0, 0, d.caps.MaxBank)
	if err != nil {
		return nil, err
	}
	program, err := args.requiredInt(argProgram, 0, d.caps.MaxProgram)
	if err != nil {
		return nil, err
	}
	if err := d.SelectInstrument(id, ch, bank, program); err != nil {
		return nil, err
	}
	return confirm("Instrument selected: channel %d bank %d program %d", ch, bank, program), nil
}

func handlePlay(d *Dispatcher, _ context.Context, args Args) (any, error) {
	id, err := args.requiredID(argID)
	if err != nil {
		return nil, err
	}
	ch, err := args.requiredInt(argChannel, 0, d.caps.Channels-1)
	if err != nil {
		return nil, err
	}
	key, err := args.requiredInt(argKey, 0, contracts.MaxKey)
	if err != nil {
		return nil, err
	}
	vel, err := args.requiredInt(argVelocity, 0, contracts.MaxVelocity)
	if err != nil {
		return nil, err
	}
	if err := d.PlayNote(id, ch, key, vel); err != nil {
		return nil, err
	}
	return confirm("Playing: %d", key), nil
}

func handleStop(d *Dispatcher, _ context.Context, args Args) (any, error) {
	id, err := args.requiredID(argID)
	if err != nil {
		return nil, err
	}
	ch, err := args.requiredInt(argChannel, 0, d.caps.Channels-1)
	if err != nil {
		return nil, err
	}
	key, err := args.requiredInt(argKey, 0, contracts.MaxKey)
	if err != nil {
		return nil, err
	}
	if err := d.StopNote(id, ch, key); err != nil {
		return nil, err
	}
	return confirm("Stopped: %d", key), nil
}

func handleStopAll(d *Dispatcher, _ context.Context, args Args) (any, error) {
	id, err := args.requiredID(argID)
	if err != nil {
		return nil, err
	}
	if err := d.StopAllNotes(id); err != nil {
		return nil, err
	}
	return "All notes stopped", nil
}

func handleUnload(d *Dispatcher, _ context.Context, args Args) (any, error) {
	id, err := args.requiredID(argID)
	if err != nil {
		return nil, err
	}
	return unload(d, id)
}

func handleDispose(d *Dispatcher, _ context.Context, args Args) (any, error) {
	id, ok, err := args.optionalID(argID)
	if err != nil {
		return nil, err
	}
	if ok {
		return unload(d, id)
	}
	d.DisposeAll()
	return "Synthesizer disposed", nil
}

func unload(d *Dispatcher, id contracts.InstanceID) (any, error) {
	already, err := d.Unload(id)
	if err != nil {
		return nil, err
	}
	if already {
		return "Synthesizer already disposed", nil
	}
	return "Synthesizer disposed", nil
}

func handleIsInitialized(d *Dispatcher, _ context.Context, args Args) (any, error) {
	id, ok, err := args.optionalID(argID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return d.AnyInitialized(), nil
	}
	return d.IsInitialized(id), nil
}

func handleInstruments(d *Dispatcher, _ context.Context, args Args) (any, error) {
	id, err := args.requiredID(argID)
	if err != nil {
		return nil, err
	}
	names, err := d.Instruments(id)
	if err != nil {
		return nil, err
	}
	return names, nil
}
