//go:build linux

package hid

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// HIDIOCSFEATURE(len) per linux/hidraw.h; the report length is encoded
// in bits 16..29 of the request.
const hidIOCSFeatureBase = 0xC0004806

func hidIOCSFeature(length int) uintptr {
	return uintptr(hidIOCSFeatureBase | length<<16)
}

const defaultSendTimeout = 250 * time.Millisecond

// Device owns an exclusive open hidraw handle for the lifetime of one
// worker session.
type Device struct {
	mu      sync.Mutex
	f       *os.File
	path    string
	timeout time.Duration

	// inflight tracks ioctls that outlived a send timeout; Close waits
	// for them before releasing the fd.
	inflight sync.WaitGroup
}

// Open opens the hidraw node read-write. The handle must be released on
// every exit path; Close is safe to call twice.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
		case errors.Is(err, os.ErrPermission):
			return nil, fmt.Errorf("%w: %s", ErrPermission, path)
		default:
			return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
		}
	}
	return &Device{f: f, path: path, timeout: defaultSendTimeout}, nil
}

// Path returns the device node this handle was opened on.
func (d *Device) Path() string { return d.path }

// SetTimeout bounds each feature-report write.
func (d *Device) SetTimeout(timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if timeout > 0 {
		d.timeout = timeout
	}
}

// SendFeature issues the HIDIOCSFEATURE ioctl with the report ID
// prepended to the payload. A write that exceeds the timeout is
// reported as an I/O failure; the frame loop skips the frame.
func (d *Device) SendFeature(reportID byte, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return fmt.Errorf("%w: device closed", ErrIO)
	}

	packet := make([]byte, 0, len(payload)+1)
	packet = append(packet, reportID)
	packet = append(packet, payload...)

	f := d.f
	done := make(chan error, 1)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		done <- ioctlFeature(f, packet)
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return classify(err, d.path)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: feature report 0x%02x timed out after %s", ErrIO, reportID, d.timeout)
	}
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	f := d.f
	d.f = nil
	// A timed-out send can still have its ioctl running; closing the fd
	// underneath it would let the kernel hand the number to someone else.
	d.inflight.Wait()
	return f.Close()
}

func ioctlFeature(f *os.File, packet []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), hidIOCSFeature(len(packet)), uintptr(unsafe.Pointer(&packet[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

func classify(err error, path string) error {
	switch {
	case errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENOENT):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %s", ErrPermission, path)
	default:
		return fmt.Errorf("%w: %s: %v", ErrIO, path, err)
	}
}
