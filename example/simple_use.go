package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/internal/router"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/leandrodaf/midisynth/sdk/synth"
)

func main() {
	log := logger.NewDevelopmentLogger()

	s, err := synth.NewSynthesizer(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithSettleDelay(200*time.Millisecond),
	)
	if err != nil {
		log.Error("Failed to initialize synthesizer", log.Field().Error("error", err))
		return
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// A manifest without presets gets the General MIDI set.
	soundfont := []byte("name: General MIDI\n")
	var id contracts.InstanceID
	if len(os.Args) > 1 {
		id, err = s.LoadSoundfontFile(ctx, os.Args[1], 0, 0)
	} else {
		id, err = s.LoadSoundfont(ctx, soundfont, 0, 0)
	}
	if err != nil {
		log.Error("Failed to load soundfont", log.Field().Error("error", err))
		return
	}

	names, _ := s.Instruments(id)
	fmt.Println("Instruments:", names)

	for _, key := range []int{60, 64, 67, 72} {
		if err := s.PlayNote(id, 0, key, 100); err != nil {
			log.Error("Failed to play note", log.Field().Error("error", err))
			return
		}
		time.Sleep(150 * time.Millisecond)
	}
	time.Sleep(time.Second)
	if err := s.StopAllNotes(id); err != nil {
		log.Error("Failed to stop notes", log.Field().Error("error", err))
	}

	input, err := synth.NewInputClient(contracts.WithLogger(log))
	if err != nil {
		return
	}
	devices, err := input.ListDevices()
	if err != nil || len(devices) == 0 {
		log.Warn("No MIDI input devices; exiting", log.Field().Error("error", err))
		return
	}
	fmt.Println("Available MIDI devices:", devices)
	if err := input.SelectDevice(0); err != nil {
		log.Error("Failed to select MIDI device", log.Field().Error("error", err))
		return
	}

	fmt.Println("Playing MIDI input... Press Ctrl+C to exit.")
	if err := router.New(input, s, id, log).Run(ctx); err != nil {
		log.Error("Routing stopped", log.Field().Error("error", err))
	}
}
