package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/coreman2200/kbdrgb/internal/anim"
	"github.com/coreman2200/kbdrgb/internal/config"
	"github.com/coreman2200/kbdrgb/internal/hid"
	"github.com/coreman2200/kbdrgb/internal/state"
)

// Options configure one worker session.
type Options struct {
	ConfigDir string
	Settings  *config.Settings

	// Transport overrides the real device; tests and -sim runs set it.
	Transport hid.Transport

	// ProcName overrides DaemonName for identity liveness checks.
	ProcName string

	// FrameSink observes every emitted frame (monitor feed).
	FrameSink func(anim.Frame)

	Log zerolog.Logger
}

// Run owns the device for the life of the process: it records the
// identity token, opens the transport, restores the last animation,
// then serves state-record changes until ctx is cancelled or a fatal
// device error occurs. All resources are released on every exit path.
func Run(ctx context.Context, opts Options) error {
	set := opts.Settings
	log := opts.Log
	procName := opts.ProcName
	if procName == "" {
		procName = DaemonName
	}

	devPath := set.ResolveDevice()
	if opts.Transport == nil && devPath == "" {
		p, err := hid.Probe(set.Candidates())
		if err != nil {
			return err
		}
		devPath = p
	}

	// The identity token is the single-writer guard: it must be in
	// place before the device is opened.
	lease, err := Acquire(opts.ConfigDir, devPath, procName, log)
	if err != nil {
		return err
	}
	defer lease.Release()

	tr := opts.Transport
	if tr == nil {
		dev, err := hid.Open(devPath)
		if err != nil {
			return err
		}
		tr = dev
	}
	defer tr.Close()

	log.Info().
		Int("pid", lease.Identity().PID).
		Str("device", devPath).
		Str("token", lease.Identity().Token).
		Msg("worker started")

	if err := hid.DisableAutonomous(tr); err != nil {
		return fmt.Errorf("disable firmware animation: %w", err)
	}

	engine := anim.NewEngine(tr, set.Params(), log)
	if opts.FrameSink != nil {
		engine.SetSink(opts.FrameSink)
	}

	statePath := filepath.Join(opts.ConfigDir, state.FileName)
	engine.Swap(initialSpec(statePath, set, log))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ech := make(chan error, 2)
	go func() { ech <- engine.Run(runCtx) }()

	watcher := state.NewWatcher(statePath, log, func(rec state.Record) {
		spec, err := rec.Spec()
		if err != nil {
			log.Warn().Err(err).Msg("ignoring unusable state record")
			return
		}
		engine.Swap(spec)
	})
	go func() { ech <- watcher.Run(runCtx) }()

	err = <-ech
	cancel()
	<-ech

	fatal := err != nil && !errors.Is(err, context.Canceled)
	if fatal {
		log.Error().Err(err).Msg("worker stopping on fatal error")
		return err
	}

	if !set.RetainOnExit {
		if offErr := engine.Off(); offErr != nil {
			log.Warn().Err(offErr).Msg("all-off frame failed on shutdown")
		}
	}
	log.Info().Msg("worker stopped")
	return nil
}

// initialSpec restores the newest state record, falling back to the
// last-applied settings. Best effort: a corrupt record is logged, not
// fatal.
func initialSpec(statePath string, set *config.Settings, log zerolog.Logger) anim.Spec {
	rec, err := state.Load(statePath)
	if err == nil {
		if spec, serr := rec.Spec(); serr == nil {
			log.Info().Str("style", rec.Style).Msg("restoring persisted animation")
			return spec
		}
	} else if errors.Is(err, state.ErrCorrupt) {
		log.Warn().Err(err).Msg("state record corrupt; using settings defaults")
	}
	return set.LastSpec()
}
