// kbdrgbctl is the scripting surface over the worker daemon: it writes
// state records, starts a detached worker when none is alive, and
// stops or inspects a running one. GUI and menu integrations shell out
// to this binary.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/kbdrgb/internal/anim"
	"github.com/coreman2200/kbdrgb/internal/config"
	"github.com/coreman2200/kbdrgb/internal/hid"
	"github.com/coreman2200/kbdrgb/internal/state"
	"github.com/coreman2200/kbdrgb/internal/worker"
)

const usage = `usage: kbdrgbctl <command> [flags]

commands:
  apply    set the animation (starts the worker if needed)
  off      switch the lighting off
  stop     stop the running worker
  status   show worker and animation state
`

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	dir, err := config.Dir()
	if err != nil {
		log.Fatal().Err(err).Msg("config dir")
	}

	var cmdErr error
	switch os.Args[1] {
	case "apply":
		cmdErr = cmdApply(dir, os.Args[2:])
	case "off":
		cmdErr = cmdOff(dir)
	case "stop":
		cmdErr = cmdStop(dir)
	case "status":
		cmdErr = cmdStatus(dir)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if cmdErr != nil {
		log.Error().Err(cmdErr).Msg(os.Args[1] + " failed")
		if errors.Is(cmdErr, hid.ErrPermission) {
			fmt.Fprintln(os.Stderr, "hint: add your user to the group owning the hidraw node, or install a udev rule")
		}
		os.Exit(1)
	}
}

func cmdApply(dir string, args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	var (
		style     = fs.String("style", "static", "static | breathing | rainbow | ripple")
		colorHex  = fs.String("color", "0000ff", "base color as RRGGBB")
		intensity = fs.Int("intensity", 255, "brightness 0-255")
		speed     = fs.Float64("speed", 0.5, "animation speed 0-1")
		device    = fs.String("device", "", "hidraw device path")
	)
	fs.Parse(args)

	st, err := anim.ParseStyle(*style)
	if err != nil {
		return err
	}
	color, err := config.ParseColor(*colorHex)
	if err != nil {
		return err
	}
	if *intensity < 0 || *intensity > 255 {
		return fmt.Errorf("intensity %d outside 0-255", *intensity)
	}

	spec := anim.Spec{
		Style:     st,
		Color:     color,
		Intensity: uint8(*intensity),
		Speed:     *speed,
		Device:    *device,
	}.Normalized()
	if err := spec.Validate(); err != nil {
		return err
	}
	return applySpec(dir, spec)
}

func cmdOff(dir string) error {
	return applySpec(dir, anim.Spec{Style: anim.Static})
}

// applySpec publishes the record and makes sure a worker is consuming
// it: a live worker picks the change up within its poll interval; with
// none alive a fresh detached worker restores it at startup.
func applySpec(dir string, spec anim.Spec) error {
	if err := state.Save(filepath.Join(dir, state.FileName), state.FromSpec(spec)); err != nil {
		return fmt.Errorf("write state record: %w", err)
	}

	// Keep the settings fallback in sync for restores without a record.
	cfgPath := filepath.Join(dir, config.FileName)
	if set, err := config.Load(cfgPath); err == nil {
		set.Last = config.LastApplied{
			Style:     string(spec.Style),
			Color:     fmt.Sprintf("%02x%02x%02x", spec.Color.R, spec.Color.G, spec.Color.B),
			Intensity: int(spec.Intensity),
			Speed:     spec.Speed,
		}
		if spec.Device != "" {
			set.Device = spec.Device
		}
		if err := config.Save(cfgPath, set); err != nil {
			log.Warn().Err(err).Msg("settings not saved")
		}
	}

	if id, err := worker.LoadIdentity(dir); err == nil && id.Alive(worker.DaemonName) {
		fmt.Printf("applied %s; worker pid %d will pick it up\n", spec.Style, id.PID)
		return nil
	}

	pid, err := worker.Spawn(dir, "")
	if err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	fmt.Printf("applied %s; started worker pid %d\n", spec.Style, pid)
	return nil
}

func cmdStop(dir string) error {
	id, err := worker.LoadIdentity(dir)
	if err != nil {
		return err
	}
	if !id.Alive(worker.DaemonName) {
		return fmt.Errorf("%w: recorded pid %d is stale", worker.ErrUnavailable, id.PID)
	}
	if err := worker.Signal(id, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal worker: %w", err)
	}
	fmt.Printf("stopping worker pid %d\n", id.PID)
	return nil
}

func cmdStatus(dir string) error {
	id, err := worker.LoadIdentity(dir)
	switch {
	case errors.Is(err, worker.ErrUnavailable):
		fmt.Println("worker: not running")
	case err != nil:
		return err
	case id.Alive(worker.DaemonName):
		fmt.Printf("worker: running (pid %d, device %s, since %s)\n",
			id.PID, id.Device, id.StartedAt.Local().Format(time.RFC3339))
	default:
		fmt.Printf("worker: stale token (pid %d)\n", id.PID)
	}

	rec, err := state.Load(filepath.Join(dir, state.FileName))
	if err != nil {
		fmt.Println("animation: none recorded")
		return nil
	}
	fmt.Printf("animation: %s color=#%02x%02x%02x intensity=%d speed=%.2f (saved %s)\n",
		rec.Style, rec.Color[0], rec.Color[1], rec.Color[2],
		rec.Intensity, rec.Speed, rec.SavedAt.Local().Format(time.RFC3339))
	return nil
}
