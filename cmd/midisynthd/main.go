// Command midisynthd serves the synthesizer control layer over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/leandrodaf/midisynth/internal/config"
	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/internal/output"
	"github.com/leandrodaf/midisynth/internal/router"
	"github.com/leandrodaf/midisynth/internal/transport"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/leandrodaf/midisynth/sdk/synth"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	envFile := flag.String("env", "", "env file (default .env)")
	list := flag.Bool("list", false, "list MIDI outputs and inputs, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logger.NewZapLogger()
	log.SetLevel(contracts.ParseLogLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		log.SetDestination(contracts.FileLog, cfg.LogFile)
	}

	if *list {
		listDevices(cfg, log)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, log); err != nil {
		log.Error("midisynthd stopped with errors", log.Field().Error("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log contracts.Logger) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var level contracts.OutputLevel = output.NewMemory(1)
	if cfg.Audio {
		stream, serr := output.NewStream(output.StreamOptions{})
		if serr != nil {
			return serr
		}
		defer func() { err = multierr.Append(err, stream.Close()) }()
		level = stream
	}

	opts := []contracts.Option{
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.ParseLogLevel(cfg.LogLevel)),
		contracts.WithSettleDelay(cfg.SettleDelay),
		contracts.WithDefaultProgram(cfg.DefaultBank, cfg.DefaultProgram),
		contracts.WithDestination(cfg.Destination),
		contracts.WithClientName(cfg.ClientName),
		contracts.WithOutputLevel(level),
	}
	engineOpts := &contracts.Options{}
	for _, opt := range opts {
		opt(engineOpts)
	}
	engine, err := synth.NewEngineByName(cfg.Engine, engineOpts)
	if err != nil {
		return err
	}
	s, err := synth.NewSynthesizer(append(opts, contracts.WithEngine(engine))...)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, s.Close()) }()

	var preloaded contracts.InstanceID
	if cfg.Soundfont != "" {
		preloaded, err = s.LoadSoundfontFile(ctx, cfg.Soundfont, cfg.DefaultBank, cfg.DefaultProgram)
		if err != nil {
			return err
		}
		log.Info("soundfont preloaded",
			log.Field().String("path", cfg.Soundfont),
			log.Field().Uint32("sfId", uint32(preloaded)))
	}

	handler, err := transport.NewHandler(transport.NewService(ctx, s.Dispatcher(), log))
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: cfg.Listen, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", log.Field().String("addr", cfg.Listen))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	routed := startRouting(ctx, func(ctx context.Context) error {
		if cfg.InputDevice < 0 || preloaded == 0 {
			return nil
		}
		return routeInput(ctx, cfg, s, preloaded, log)
	}, log)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serveErr:
	}

	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	err = multierr.Append(err, srv.Shutdown(shutdownCtx))
	return multierr.Append(err, <-routed)
}

// startRouting runs route in the background. A failure before ctx ends is
// logged at once; the daemon keeps serving without input. The result is
// delivered on the returned channel.
func startRouting(ctx context.Context, route func(context.Context) error, log contracts.Logger) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := route(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error("MIDI input routing failed, serving without input", log.Field().Error("error", err))
		}
		done <- err
	}()
	return done
}

func routeInput(ctx context.Context, cfg *config.Config, s *synth.Synthesizer, id contracts.InstanceID, log contracts.Logger) error {
	input, err := synth.NewInputClient(contracts.WithLogger(log), contracts.WithClientName(cfg.ClientName))
	if err != nil {
		return err
	}
	if err := input.SelectDevice(cfg.InputDevice); err != nil {
		return err
	}
	return router.New(input, s, id, log).Run(ctx)
}

func listDevices(cfg *config.Config, log contracts.Logger) {
	outs, err := synth.ListDestinations(cfg.Engine)
	if err != nil {
		log.Warn("could not list MIDI outputs", log.Field().Error("error", err))
	}
	for _, d := range outs {
		fmt.Printf("out %2d  %s\n", d.Index, d.Name)
	}

	input, err := synth.NewInputClient(contracts.WithLogger(log), contracts.WithClientName(cfg.ClientName))
	if err != nil {
		log.Warn("could not open MIDI input client", log.Field().Error("error", err))
		return
	}
	ins, err := input.ListDevices()
	if err != nil {
		log.Warn("could not list MIDI inputs", log.Field().Error("error", err))
	}
	for _, d := range ins {
		fmt.Printf("in  %2d  %s\n", d.Index, d.Name)
	}
}
