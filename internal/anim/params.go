package anim

import (
	"time"

	"github.com/coreman2200/kbdrgb/internal/zones"
)

// Params hold the tunable engine constants. Values come from the
// settings file; the steppers never hard-code them.
type Params struct {
	FrameInterval time.Duration
	ZoneCount     int

	// Speed-to-period mapping shared by breathing and rainbow:
	// speed 0 -> PeriodMax, speed 1 -> PeriodMin, linear in between.
	PeriodMax time.Duration
	PeriodMin time.Duration

	RippleBaseFraction  float64
	RippleBoostFraction float64
	RippleDecayStep     int
	RippleRadius        int
	RippleMinGap        time.Duration
	RippleMaxGap        time.Duration
}

func DefaultParams() Params {
	return Params{
		FrameInterval:       50 * time.Millisecond,
		ZoneCount:           zones.DefaultCount,
		PeriodMax:           5 * time.Second,
		PeriodMin:           500 * time.Millisecond,
		RippleBaseFraction:  0.20,
		RippleBoostFraction: 0.05,
		RippleDecayStep:     2,
		RippleRadius:        2,
		RippleMinGap:        100 * time.Millisecond,
		RippleMaxGap:        500 * time.Millisecond,
	}
}

// Period maps a 0..1 speed onto the configured period range. Higher
// speed means a shorter period.
func (p Params) Period(speed float64) time.Duration {
	if speed < 0 {
		speed = 0
	}
	if speed > 1 {
		speed = 1
	}
	return p.PeriodMax - time.Duration(speed*float64(p.PeriodMax-p.PeriodMin))
}
