package anim

import "github.com/coreman2200/kbdrgb/internal/zones"

// ZoneUpdate colors one zone range at a given intensity.
type ZoneUpdate struct {
	Range     zones.Range
	Color     Color
	Intensity uint8
}

// Frame is everything one tick put on the wire.
type Frame struct {
	ID      uint64
	Style   Style
	Updates []ZoneUpdate
}
