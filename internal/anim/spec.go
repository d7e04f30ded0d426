// Package anim turns a style plus parameters into a timed sequence of
// zone color updates.
package anim

import (
	"fmt"
	"strings"
)

// Style selects one of the built-in animation state machines.
type Style string

const (
	Static    Style = "static"
	Breathing Style = "breathing"
	Rainbow   Style = "rainbow"
	Ripple    Style = "ripple"
)

// ParseStyle normalizes user input ("Breathing", "RIPPLE") to a Style.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(s)) {
	case Static:
		return Static, nil
	case Breathing:
		return Breathing, nil
	case Rainbow:
		return Rainbow, nil
	case Ripple:
		return Ripple, nil
	default:
		return "", fmt.Errorf("unknown style %q", s)
	}
}

// Color is one 8-bit-per-channel RGB triple.
type Color struct {
	R, G, B uint8
}

// Spec describes one desired animation: the style plus everything the
// stepper needs to run it.
type Spec struct {
	Style     Style
	Color     Color
	Intensity uint8
	Speed     float64 // 0 slowest .. 1 fastest
	Device    string
}

// Validate rejects specs no stepper can run.
func (s Spec) Validate() error {
	switch s.Style {
	case Static, Breathing, Rainbow, Ripple:
	default:
		return fmt.Errorf("unknown style %q", s.Style)
	}
	if s.Speed != s.Speed { // NaN
		return fmt.Errorf("speed is NaN")
	}
	return nil
}

// Normalized clamps the speed into [0,1]. Channel values and intensity
// are already bounded by their byte type.
func (s Spec) Normalized() Spec {
	if s.Speed < 0 {
		s.Speed = 0
	}
	if s.Speed > 1 {
		s.Speed = 1
	}
	return s
}
