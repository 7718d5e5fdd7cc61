// Package router plays live MIDI input on a synthesizer instance.
package router

import (
	"context"
	"errors"

	"go.uber.org/multierr"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

const defaultBuffer = 256

// Player is the part of the dispatcher the router drives.
type Player interface {
	PlayNote(id contracts.InstanceID, channel, key, velocity int) error
	StopNote(id contracts.InstanceID, channel, key int) error
}

// Router forwards note events from an input client to one instance.
type Router struct {
	input  contracts.InputClient
	player Player
	target contracts.InstanceID
	logger contracts.Logger
	buffer int
}

// New returns a router that plays events from input on instance target.
func New(input contracts.InputClient, player Player, target contracts.InstanceID, logger contracts.Logger) *Router {
	return &Router{input: input, player: player, target: target, logger: logger, buffer: defaultBuffer}
}

// Run captures from the selected input device until ctx ends, then stops the
// input. Individual note failures are logged and do not stop routing.
func (r *Router) Run(ctx context.Context) error {
	events := make(chan contracts.NoteEvent, r.buffer)
	r.input.StartCapture(events)
	r.logger.Info("routing MIDI input", r.logger.Field().Uint32("sfId", uint32(r.target)))

	var failures int
	for {
		select {
		case <-ctx.Done():
			err := r.input.Stop()
			r.logger.Info("MIDI input routing stopped", r.logger.Field().Int("failures", failures))
			if errors.Is(ctx.Err(), context.Canceled) {
				return err
			}
			return multierr.Append(ctx.Err(), err)
		case ev := <-events:
			if err := r.route(ev); err != nil {
				failures++
				r.logger.Debug("routed note rejected",
					r.logger.Field().Uint8("channel", ev.Channel),
					r.logger.Field().Uint8("note", ev.Note),
					r.logger.Field().Error("error", err))
			}
		}
	}
}

func (r *Router) route(ev contracts.NoteEvent) error {
	ch, key := int(ev.Channel), int(ev.Note)
	if ev.IsNoteOff() {
		return r.player.StopNote(r.target, ch, key)
	}
	return r.player.PlayNote(r.target, ch, key, int(ev.Velocity))
}
