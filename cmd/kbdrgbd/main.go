package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/kbdrgb/internal/config"
	"github.com/coreman2200/kbdrgb/internal/diagnostics"
	"github.com/coreman2200/kbdrgb/internal/hid"
	"github.com/coreman2200/kbdrgb/internal/monitor"
	"github.com/coreman2200/kbdrgb/internal/worker"
)

func main() {
	var (
		configDir  = flag.String("config-dir", "", "config directory (default: user config dir)")
		device     = flag.String("device", "", "hidraw device path (overrides config and probe)")
		listen     = flag.String("listen", "", "monitor listen address, e.g. 127.0.0.1:8371")
		foreground = flag.Bool("foreground", false, "log human-readable to stdout")
		sim        = flag.Bool("sim", false, "no hardware; record frames in memory")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	if *foreground {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}

	dir := *configDir
	if dir == "" {
		d, err := config.Dir()
		if err != nil {
			log.Fatal().Err(err).Msg("config dir")
		}
		dir = d
	}

	set, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		log.Fatal().Err(err).Msg("load settings")
	}
	if *device != "" {
		set.Device = *device
	}
	addr := set.ListenAddr
	if *listen != "" {
		addr = *listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := worker.Options{
		ConfigDir: dir,
		Settings:  set,
		Log:       log.Logger,
	}
	if *sim {
		opts.Transport = &hid.Fake{}
	}
	if addr != "" {
		mon := monitor.New(set.ZoneCount, log.Logger)
		opts.FrameSink = mon.Push
		go func() {
			if err := mon.Serve(ctx, addr); err != nil {
				log.Warn().Err(err).Msg("monitor stopped")
			}
		}()
	}

	if err := worker.Run(ctx, opts); err != nil {
		if errors.Is(err, worker.ErrAlreadyRunning) {
			log.Error().Err(err).Msg("refusing to start a duplicate worker")
			os.Exit(2)
		}
		if errors.Is(err, hid.ErrPermission) || errors.Is(err, hid.ErrDeviceNotFound) || errors.Is(err, hid.ErrIO) {
			diagnostics.ForDeviceError(err, deviceForDiag(set)).Log(log.Logger)
		} else {
			log.Error().Err(err).Msg("worker failed")
		}
		os.Exit(1)
	}
}

func deviceForDiag(set *config.Settings) string {
	if p := set.ResolveDevice(); p != "" {
		return p
	}
	return "/dev/hidraw*"
}
