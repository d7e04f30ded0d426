package zones

import "fmt"

// The firmware addresses the LED strip as contiguous zones; per-LED
// addressing does not exist on the wire.
const (
	DefaultCount       = 20
	DefaultLEDsPerZone = 5
)

// Range is an inclusive [Start, End] span of zone indices.
type Range struct {
	Start int
	End   int
}

// Full covers every zone of a device with count zones.
func Full(count int) Range { return Range{Start: 0, End: count - 1} }

// Single addresses exactly one zone.
func Single(i int) Range { return Range{Start: i, End: i} }

// Validate checks the range against the device's zone count.
func (r Range) Validate(count int) error {
	if count <= 0 {
		return fmt.Errorf("zone count %d is not positive", count)
	}
	if r.Start > r.End {
		return fmt.Errorf("zone range [%d,%d]: start after end", r.Start, r.End)
	}
	if r.Start < 0 || r.End >= count {
		return fmt.Errorf("zone range [%d,%d] outside [0,%d]", r.Start, r.End, count-1)
	}
	return nil
}

// Width returns the number of zones covered.
func (r Range) Width() int { return r.End - r.Start + 1 }

// LEDSpan returns the first and last physical LED index the range
// covers, given the per-zone LED density.
func (r Range) LEDSpan(ledsPerZone int) (first, last int) {
	return r.Start * ledsPerZone, (r.End+1)*ledsPerZone - 1
}
