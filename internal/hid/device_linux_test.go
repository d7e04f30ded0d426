//go:build linux

package hid

import (
	"errors"
	"testing"
	"time"
)

// /dev/null accepts the open but not the ioctl, which is all these
// tests need: a real fd with a failing or slow-looking send.
func openNullDevice(t *testing.T) *Device {
	t.Helper()
	d, err := Open("/dev/null")
	if err != nil {
		t.Skipf("cannot open /dev/null read-write: %v", err)
	}
	return d
}

func TestSendFeatureOnNonHIDNode(t *testing.T) {
	d := openNullDevice(t)
	defer d.Close()
	err := d.SendFeature(ReportSetColor, []byte{1, 2, 3, 4, 0, 19})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("want ErrIO from a non-HID node, got %v", err)
	}
}

func TestTimedOutSendThenClose(t *testing.T) {
	// A send that times out leaves its ioctl goroutine behind; Close
	// right after must neither race the handle nor free the fd while
	// the ioctl is still on it.
	for i := 0; i < 100; i++ {
		d := openNullDevice(t)
		d.SetTimeout(time.Nanosecond)
		if err := d.SendFeature(ReportSetColor, []byte{0, 0, 0, 0, 0, 19}); !errors.Is(err, ErrIO) {
			t.Fatalf("iteration %d: want ErrIO, got %v", i, err)
		}
		if err := d.Close(); err != nil {
			t.Fatalf("iteration %d: close: %v", i, err)
		}
	}
}

func TestSendFeatureAfterClose(t *testing.T) {
	d := openNullDevice(t)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := d.SendFeature(ReportSetColor, []byte{0, 0, 0, 0, 0, 19}); !errors.Is(err, ErrIO) {
		t.Fatalf("want ErrIO on closed device, got %v", err)
	}
}
