package hid

import (
	"fmt"
	"sync"
)

// Report is one captured feature report.
type Report struct {
	ID      byte
	Payload []byte
}

// Fake records feature reports instead of touching hardware. Useful for
// headless tests and -sim runs.
type Fake struct {
	mu      sync.Mutex
	reports []Report

	// Err, when set, is returned by the next SendFeature calls.
	Err error

	closed bool
}

func (f *Fake) SendFeature(reportID byte, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("%w: transport closed", ErrIO)
	}
	if f.Err != nil {
		return f.Err
	}
	p := make([]byte, len(payload))
	copy(p, payload)
	f.reports = append(f.reports, Report{ID: reportID, Payload: p})
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Reports returns a snapshot of everything sent so far.
func (f *Fake) Reports() []Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Report, len(f.reports))
	copy(out, f.reports)
	return out
}

// Fail makes subsequent sends return err; pass nil to heal.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}
