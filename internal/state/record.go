// Package state persists the desired animation as a small record and
// watches it for changes. The record is the only channel between the
// controller and a live worker.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coreman2200/kbdrgb/internal/anim"
)

// ErrCorrupt marks a record that exists but cannot be decoded. Corrupt
// records are ignored; the running animation stays untouched.
var ErrCorrupt = errors.New("state: corrupt record")

const FileName = "state.json"

// Record is the persisted description of the desired animation.
type Record struct {
	Style     string    `json:"style"`
	Color     [3]uint8  `json:"color"`
	Intensity uint8     `json:"intensity"`
	Speed     float64   `json:"speed"`
	Device    string    `json:"device,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// FromSpec snapshots a spec for persistence.
func FromSpec(s anim.Spec) Record {
	return Record{
		Style:     string(s.Style),
		Color:     [3]uint8{s.Color.R, s.Color.G, s.Color.B},
		Intensity: s.Intensity,
		Speed:     s.Speed,
		Device:    s.Device,
		SavedAt:   time.Now().UTC(),
	}
}

// Spec rebuilds the animation spec the record describes.
func (r Record) Spec() (anim.Spec, error) {
	style, err := anim.ParseStyle(r.Style)
	if err != nil {
		return anim.Spec{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return anim.Spec{
		Style:     style,
		Color:     anim.Color{R: r.Color[0], G: r.Color[1], B: r.Color[2]},
		Intensity: r.Intensity,
		Speed:     r.Speed,
		Device:    r.Device,
	}.Normalized(), nil
}

// Save writes the record with a temp-file-plus-rename so no reader ever
// observes a partially written record.
func Save(path string, r Record) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads and decodes the record at path. A missing file surfaces
// the underlying not-exist error; malformed content is ErrCorrupt.
func Load(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if r.Style == "" {
		return Record{}, fmt.Errorf("%w: missing style", ErrCorrupt)
	}
	return r, nil
}
