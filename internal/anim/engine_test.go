package anim

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/kbdrgb/internal/hid"
)

func newTestEngine(t *testing.T, p Params) (*Engine, *hid.Fake) {
	t.Helper()
	f := &hid.Fake{}
	return NewEngine(f, p, zerolog.Nop()), f
}

func TestStaticScenario(t *testing.T) {
	e, f := newTestEngine(t, testParams())
	e.Swap(Spec{Style: Static, Color: Color{R: 255}, Intensity: 255})

	now := time.Now()
	require.NoError(t, e.Tick(now))
	for i := 1; i < 5; i++ {
		require.NoError(t, e.Tick(now.Add(time.Duration(i)*50*time.Millisecond)))
	}

	reports := f.Reports()
	require.Len(t, reports, 1, "static emits exactly one frame")
	assert.Equal(t, byte(hid.ReportSetColor), reports[0].ID)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 19}, reports[0].Payload)
}

func TestTickWithoutAnimation(t *testing.T) {
	e, f := newTestEngine(t, testParams())
	require.NoError(t, e.Tick(time.Now()))
	assert.Empty(t, f.Reports())
	_, ok := e.Current()
	assert.False(t, ok)
}

func TestSwapIsAtomic(t *testing.T) {
	p := testParams()
	p.FrameInterval = 2 * time.Millisecond
	e, _ := newTestEngine(t, p)

	var seen styleLog
	e.SetSink(func(f Frame) { seen.add(f.Style) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	e.Swap(Spec{Style: Breathing, Color: Color{B: 255}, Intensity: 200, Speed: 0.9})
	time.Sleep(30 * time.Millisecond)
	e.Swap(Spec{Style: Rainbow, Intensity: 200, Speed: 0.9})
	time.Sleep(30 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	styles := seen.snapshot()
	require.NotEmpty(t, styles)
	sawRainbow := false
	for _, st := range styles {
		if st == Rainbow {
			sawRainbow = true
		}
		if sawRainbow && st != Rainbow {
			t.Fatalf("frame of style %q emitted after the switch to rainbow", st)
		}
	}
	assert.True(t, sawRainbow, "rainbow frames must appear after the swap")
}

func TestTransientIOFailureSkipsFrame(t *testing.T) {
	e, f := newTestEngine(t, testParams())
	e.Swap(Spec{Style: Breathing, Color: Color{G: 255}, Intensity: 255, Speed: 0.5})

	f.Fail(fmt.Errorf("%w: transient", hid.ErrIO))
	err := e.Tick(time.Now())
	require.ErrorIs(t, err, hid.ErrIO)

	f.Fail(nil)
	require.NoError(t, e.Tick(time.Now()))
	assert.NotEmpty(t, f.Reports(), "loop keeps emitting after a skipped frame")
}

func TestOff(t *testing.T) {
	e, f := newTestEngine(t, testParams())
	e.Swap(Spec{Style: Static, Color: Color{R: 10}, Intensity: 10})
	require.NoError(t, e.Tick(time.Now()))

	require.NoError(t, e.Off())
	reports := f.Reports()
	last := reports[len(reports)-1]
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 19}, last.Payload)
	_, ok := e.Current()
	assert.False(t, ok, "Off clears the active animation")

	// Idle afterwards.
	require.NoError(t, e.Tick(time.Now()))
	assert.Len(t, f.Reports(), len(reports))
}

func TestSwapWakesIdleLoop(t *testing.T) {
	p := testParams()
	p.FrameInterval = time.Hour // ticker never fires during the test
	e, f := newTestEngine(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	e.Swap(Spec{Style: Static, Color: Color{B: 255}, Intensity: 128})

	deadline := time.After(2 * time.Second)
	for len(f.Reports()) == 0 {
		select {
		case <-deadline:
			t.Fatal("swap did not wake the loop")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestCurrentReflectsSwap(t *testing.T) {
	e, _ := newTestEngine(t, testParams())
	e.Swap(Spec{Style: Ripple, Color: Color{R: 1}, Intensity: 99, Speed: 2.5})
	spec, ok := e.Current()
	require.True(t, ok)
	assert.Equal(t, Ripple, spec.Style)
	assert.Equal(t, 1.0, spec.Speed, "speed clamps into [0,1] on swap")
}

// styleLog is a synchronized record of frame styles seen by the sink.
type styleLog struct {
	mu     sync.Mutex
	styles []Style
}

func (l *styleLog) add(s Style) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.styles = append(l.styles, s)
}

func (l *styleLog) snapshot() []Style {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Style, len(l.styles))
	copy(out, l.styles)
	return out
}
