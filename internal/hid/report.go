// Package hid speaks the keyboard's feature-report protocol over a raw
// hidraw node. It is the only package that touches hardware I/O.
package hid

import (
	"errors"
	"fmt"

	"github.com/coreman2200/kbdrgb/internal/zones"
)

// Feature report IDs understood by the firmware.
const (
	ReportSetColor          = 0x05
	ReportDisableAutonomous = 0x0B
)

var (
	ErrDeviceNotFound = errors.New("hid: device not found")
	ErrPermission     = errors.New("hid: permission denied")
	ErrIO             = errors.New("hid: i/o failure")
	ErrProtocol       = errors.New("hid: protocol violation")
)

// Transport is a sink for feature reports. Device drives real hidraw
// hardware; Fake records reports for tests and sim runs.
type Transport interface {
	SendFeature(reportID byte, payload []byte) error
	Close() error
}

// DisableAutonomous suppresses the firmware's own animation so host
// frames are not overridden. Sent exactly once per session, before any
// color write.
func DisableAutonomous(t Transport) error {
	return t.SendFeature(ReportDisableAutonomous, []byte{0x00})
}

// SetColor writes one color/intensity update covering the inclusive
// zone range. The range is validated against zoneCount before any I/O
// is issued.
func SetColor(t Transport, r, g, b, intensity uint8, zr zones.Range, zoneCount int) error {
	if err := zr.Validate(zoneCount); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if zoneCount > 256 {
		return fmt.Errorf("%w: zone count %d does not fit a byte", ErrProtocol, zoneCount)
	}
	payload := []byte{r, g, b, intensity, byte(zr.Start), byte(zr.End)}
	return t.SendFeature(ReportSetColor, payload)
}
