//go:build !linux

package hid

import (
	"fmt"
	"time"
)

// Device is only implemented on linux (hidraw). The stub keeps
// non-linux builds compiling for sim runs and tests.
type Device struct{ path string }

func Open(path string) (*Device, error) {
	return nil, fmt.Errorf("%w: hidraw is linux-only", ErrDeviceNotFound)
}

func (d *Device) Path() string               { return d.path }
func (d *Device) SetTimeout(_ time.Duration) {}
func (d *Device) Close() error               { return nil }

func (d *Device) SendFeature(byte, []byte) error {
	return fmt.Errorf("%w: hidraw is linux-only", ErrIO)
}
