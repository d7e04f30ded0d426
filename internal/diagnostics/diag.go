// Package diagnostics turns low-level device failures into records a
// collaborator can show the user, remediation included.
package diagnostics

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/coreman2200/kbdrgb/internal/hid"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// ForDeviceError maps a transport failure onto an actionable record.
func ForDeviceError(err error, path string) Diagnostic {
	switch {
	case errors.Is(err, hid.ErrPermission):
		return Diagnostic{
			Severity: Err,
			Code:     "DEV.PERMISSION",
			Summary:  "cannot open the keyboard HID device",
			Detail:   err.Error(),
			LikelyCauses: []string{
				"the hidraw node is owned by root with no group access",
			},
			SuggestedFixes: []string{
				"add your user to the group owning " + path + " (often 'plugdev' or 'input')",
				"or install a udev rule granting rw access to the hidraw node",
				"log out and back in so the new group membership applies",
			},
			Evidence: map[string]any{"device": path},
		}
	case errors.Is(err, hid.ErrDeviceNotFound):
		return Diagnostic{
			Severity: Err,
			Code:     "DEV.MISSING",
			Summary:  "keyboard HID device not found",
			Detail:   err.Error(),
			LikelyCauses: []string{
				"the keyboard is unplugged or enumerated on a different hidraw node",
			},
			SuggestedFixes: []string{
				"check the USB connection",
				"set KBDRGB_HID to the correct /dev/hidrawN node",
			},
			Evidence: map[string]any{"device": path},
		}
	default:
		return Diagnostic{
			Severity: Err,
			Code:     "DEV.IO",
			Summary:  "device I/O failed",
			Detail:   err.Error(),
			Evidence: map[string]any{"device": path},
		}
	}
}

// Log writes the diagnostic through the given logger at its severity.
func (d Diagnostic) Log(log zerolog.Logger) {
	var ev *zerolog.Event
	switch d.Severity {
	case Err:
		ev = log.Error()
	case Warn:
		ev = log.Warn()
	default:
		ev = log.Info()
	}
	ev = ev.Str("code", d.Code).Str("detail", d.Detail)
	if len(d.SuggestedFixes) > 0 {
		ev = ev.Strs("fixes", d.SuggestedFixes)
	}
	ev.Msg(d.Summary)
}
