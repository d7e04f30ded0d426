package anim

import (
	"math"
	"math/rand"
	"time"

	"github.com/coreman2200/kbdrgb/internal/zones"
)

// Stepper is one live animation state machine. Step returns the zone
// updates to emit for the tick at elapsed time since the stepper was
// installed, or nil when the hardware already shows the right thing.
type Stepper interface {
	Style() Style
	Step(elapsed time.Duration) []ZoneUpdate
}

// NewStepper builds the state machine for spec.Style. The spec should
// already be normalized.
func NewStepper(spec Spec, p Params) Stepper {
	switch spec.Style {
	case Breathing:
		return &breathingStep{spec: spec, p: p, period: p.Period(spec.Speed)}
	case Rainbow:
		return &rainbowStep{spec: spec, p: p, period: p.Period(spec.Speed)}
	case Ripple:
		return newRippleStep(spec, p)
	default:
		return &staticStep{spec: spec, p: p}
	}
}

// staticStep paints once, then goes idle until replaced.
type staticStep struct {
	spec Spec
	p    Params
	done bool
}

func (s *staticStep) Style() Style { return Static }

func (s *staticStep) Step(time.Duration) []ZoneUpdate {
	if s.done {
		return nil
	}
	s.done = true
	return []ZoneUpdate{{
		Range:     zones.Full(s.p.ZoneCount),
		Color:     s.spec.Color,
		Intensity: s.spec.Intensity,
	}}
}

// breathingStep modulates intensity on a sine, fixed RGB.
type breathingStep struct {
	spec   Spec
	p      Params
	period time.Duration
}

func (b *breathingStep) Style() Style { return Breathing }

func (b *breathingStep) Step(elapsed time.Duration) []ZoneUpdate {
	t := elapsed.Seconds()
	phase := 0.5 + 0.5*math.Sin(2*math.Pi*t/b.period.Seconds())
	i := uint8(math.Round(float64(b.spec.Intensity) * phase))
	return []ZoneUpdate{{
		Range:     zones.Full(b.p.ZoneCount),
		Color:     b.spec.Color,
		Intensity: i,
	}}
}

// rainbowStep cycles the hue wheel at full saturation and value. The
// base color from the spec is deliberately ignored.
type rainbowStep struct {
	spec   Spec
	p      Params
	period time.Duration
}

func (r *rainbowStep) Style() Style { return Rainbow }

func (r *rainbowStep) Step(elapsed time.Duration) []ZoneUpdate {
	hue := math.Mod(elapsed.Seconds()/r.period.Seconds(), 1.0)
	return []ZoneUpdate{{
		Range:     zones.Full(r.p.ZoneCount),
		Color:     hsvToColor(hue, 1.0, 1.0),
		Intensity: r.spec.Intensity,
	}}
}

func hsvToColor(h, s, v float64) Color {
	i := int(h * 6.0)
	f := h*6.0 - float64(i)
	p := v * (1.0 - s)
	q := v * (1.0 - f*s)
	t := v * (1.0 - (1.0-f)*s)
	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return Color{
		R: uint8(math.Round(r * 255)),
		G: uint8(math.Round(g * 255)),
		B: uint8(math.Round(b * 255)),
	}
}

// rippleStep keeps a per-zone intensity array around a dim baseline and
// simulates keystrokes on a random timer. Only zones whose value
// changed since the last emission go on the wire.
type rippleStep struct {
	spec    Spec
	p       Params
	base    int
	boost   int
	level   []int
	emitted []int
	next    time.Duration

	// seams for deterministic tests; defaults use rng
	pick func(n int) int
	gap  func() time.Duration
}

func newRippleStep(spec Spec, p Params) *rippleStep {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	r := &rippleStep{
		spec:    spec,
		p:       p,
		base:    int(math.Round(p.RippleBaseFraction * 255)),
		boost:   int(math.Round(p.RippleBoostFraction * 255)),
		level:   make([]int, p.ZoneCount),
		emitted: make([]int, p.ZoneCount),
		pick:    rng.Intn,
	}
	r.gap = func() time.Duration {
		return r.p.RippleMinGap + time.Duration(rng.Float64()*float64(r.p.RippleMaxGap-r.p.RippleMinGap))
	}
	for i := range r.level {
		r.level[i] = r.base
		r.emitted[i] = -1 // force the initial baseline paint
	}
	r.next = r.gap()
	return r
}

func (r *rippleStep) Style() Style { return Ripple }

// strike boosts zones around k, strongest at the center, clamped to 255.
func (r *rippleStep) strike(k int) {
	for i := max(0, k-r.p.RippleRadius); i <= min(len(r.level)-1, k+r.p.RippleRadius); i++ {
		distance := i - k
		if distance < 0 {
			distance = -distance
		}
		v := r.level[i] + r.boost/(distance+1)
		if v > 255 {
			v = 255
		}
		r.level[i] = v
	}
}

func (r *rippleStep) Step(elapsed time.Duration) []ZoneUpdate {
	// Decay before any new strike so the strike's own frame shows the
	// full boost; never drop below the baseline.
	for i, v := range r.level {
		if v > r.base {
			v -= r.p.RippleDecayStep
			if v < r.base {
				v = r.base
			}
			r.level[i] = v
		}
	}

	if elapsed >= r.next {
		r.strike(r.pick(len(r.level)))
		r.next = elapsed + r.gap()
	}

	var ups []ZoneUpdate
	for i, v := range r.level {
		if v != r.emitted[i] {
			ups = append(ups, ZoneUpdate{
				Range:     zones.Single(i),
				Color:     r.spec.Color,
				Intensity: uint8(v),
			})
			r.emitted[i] = v
		}
	}
	return ups
}
