package hid

import (
	"fmt"
	"os"
	"strings"
)

// DefaultCandidates are the hidraw nodes probed when no device path is
// configured. The keyboard usually lands on one of the first few.
var DefaultCandidates = []string{
	"/dev/hidraw0",
	"/dev/hidraw1",
	"/dev/hidraw2",
	"/dev/hidraw3",
}

// Probe returns the first candidate node that exists. Permission
// problems are left for Open to report so the caller gets the
// actionable error class.
func Probe(candidates []string) (string, error) {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: none of %s present", ErrDeviceNotFound, strings.Join(candidates, ", "))
}
