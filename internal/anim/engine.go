package anim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/kbdrgb/internal/hid"
	"github.com/coreman2200/kbdrgb/internal/zones"
)

// Engine owns the transport and runs exactly one Stepper at a time.
// Swapping the active animation and emitting a frame share one lock, so
// frames from two styles can never interleave: a Swap lands strictly
// between ticks.
type Engine struct {
	tr     hid.Transport
	params Params
	log    zerolog.Logger

	mu      sync.Mutex
	cur     Stepper
	curSpec Spec
	started time.Time
	frameID uint64

	kick chan struct{}
	sink func(Frame)
}

func NewEngine(tr hid.Transport, p Params, log zerolog.Logger) *Engine {
	return &Engine{
		tr:     tr,
		params: p,
		log:    log,
		kick:   make(chan struct{}, 1),
	}
}

// SetSink installs an observer for emitted frames (monitor feed). The
// sink must not call back into the engine.
func (e *Engine) SetSink(sink func(Frame)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
}

// Params returns the engine's tuning constants.
func (e *Engine) Params() Params { return e.params }

// Current returns the spec of the active animation, if any.
func (e *Engine) Current() (Spec, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.curSpec, e.cur != nil
}

// Swap atomically replaces the active animation. The superseded stepper
// never emits again; the new one starts its clock at the swap instant.
// An idle loop (static gone quiet) is woken immediately.
func (e *Engine) Swap(spec Spec) {
	spec = spec.Normalized()
	e.mu.Lock()
	e.cur = NewStepper(spec, e.params)
	e.curSpec = spec
	e.started = time.Now()
	e.mu.Unlock()

	e.log.Info().
		Str("style", string(spec.Style)).
		Uint8("intensity", spec.Intensity).
		Float64("speed", spec.Speed).
		Msg("animation swapped")

	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Tick renders at most one frame for the active stepper. A transport
// failure abandons the rest of the frame and is returned for the caller
// to classify.
func (e *Engine) Tick(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return nil
	}
	ups := e.cur.Step(now.Sub(e.started))
	if len(ups) == 0 {
		return nil
	}
	for _, u := range ups {
		err := hid.SetColor(e.tr, u.Color.R, u.Color.G, u.Color.B, u.Intensity, u.Range, e.params.ZoneCount)
		if err != nil {
			return err
		}
	}
	e.frameID++
	if e.sink != nil {
		frame := Frame{ID: e.frameID, Style: e.cur.Style(), Updates: make([]ZoneUpdate, len(ups))}
		copy(frame.Updates, ups)
		e.sink(frame)
	}
	return nil
}

// Run drives Tick at the configured cadence until ctx is cancelled.
// Cancellation is observed at frame boundaries only; an in-flight frame
// always completes. Transient I/O failures skip the frame and keep the
// loop alive; anything else is fatal and returned.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.params.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.kick:
		case <-ticker.C:
		}
		if err := e.Tick(time.Now()); err != nil {
			if errors.Is(err, hid.ErrIO) {
				e.log.Warn().Err(err).Msg("frame skipped")
				continue
			}
			return err
		}
	}
}

// Off clears the active animation and paints every zone black at zero
// intensity. Used on stop when the hardware should not retain state.
func (e *Engine) Off() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cur = nil
	e.curSpec = Spec{}
	return hid.SetColor(e.tr, 0, 0, 0, 0, zones.Full(e.params.ZoneCount), e.params.ZoneCount)
}
