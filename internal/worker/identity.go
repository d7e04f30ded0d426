// Package worker owns the device for the life of one detached process:
// it records a liveness token, runs the frame loop, and serves
// state-record changes until stopped.
package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DaemonName is the worker binary's process name, checked during stale
// identity verification.
const DaemonName = "kbdrgbd"

const (
	identityFileName = "worker.json"
	lockFileName     = ".worker.lock"
)

var (
	// ErrUnavailable: no identity token, or the recorded worker is gone.
	ErrUnavailable = errors.New("worker: no live worker")
	// ErrAlreadyRunning: a live worker already owns the device.
	ErrAlreadyRunning = errors.New("worker: device already owned")
)

// Identity is the liveness token proving one worker owns the device.
type Identity struct {
	PID       int       `json:"pid"`
	Token     string    `json:"token"`
	Device    string    `json:"device"`
	StartedAt time.Time `json:"started_at"`
}

func IdentityPath(dir string) string {
	return filepath.Join(dir, identityFileName)
}

// LoadIdentity reads the recorded token; a missing file is
// ErrUnavailable.
func LoadIdentity(dir string) (Identity, error) {
	b, err := os.ReadFile(IdentityPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return Identity{}, ErrUnavailable
		}
		return Identity{}, err
	}
	var id Identity
	if err := json.Unmarshal(b, &id); err != nil || id.PID <= 0 {
		return Identity{}, fmt.Errorf("%w: unreadable identity token", ErrUnavailable)
	}
	return id, nil
}

// Alive reports whether the recorded process is still the named daemon.
// A recycled pid fails the name check and counts as stale.
func (id Identity) Alive(procName string) bool {
	if id.PID <= 0 {
		return false
	}
	return processAlive(id.PID, procName)
}

// Signal delivers sig to the recorded worker process.
func Signal(id Identity, sig syscall.Signal) error {
	p, err := os.FindProcess(id.PID)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

// Lease is a held identity; Release removes the token only while it is
// still ours.
type Lease struct {
	dir string
	id  Identity
}

// Acquire records this process as the device owner. A live worker makes
// it fail with ErrAlreadyRunning; a stale token is reclaimed. The
// check-and-write runs under a file lock so two workers starting in the
// same instant cannot both pass the liveness check.
func Acquire(dir, device, procName string, log zerolog.Logger) (*Lease, error) {
	lock, err := lockAcquireDir(dir)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	if id, err := LoadIdentity(dir); err == nil {
		if id.Alive(procName) {
			return nil, fmt.Errorf("%w: pid %d owns %s since %s",
				ErrAlreadyRunning, id.PID, id.Device, id.StartedAt.Format(time.RFC3339))
		}
		log.Warn().Int("stale_pid", id.PID).Str("token", id.Token).Msg("reclaiming stale worker identity")
		_ = os.Remove(IdentityPath(dir))
	}

	id := Identity{
		PID:       os.Getpid(),
		Token:     uuid.NewString(),
		Device:    device,
		StartedAt: time.Now().UTC(),
	}
	if err := writeIdentity(dir, id); err != nil {
		return nil, err
	}
	return &Lease{dir: dir, id: id}, nil
}

func (l *Lease) Identity() Identity { return l.id }

// Release removes the token. A token replaced by someone else (we were
// reclaimed as stale after a long stall) is left alone.
func (l *Lease) Release() {
	cur, err := LoadIdentity(l.dir)
	if err == nil && cur.Token != l.id.Token {
		return
	}
	_ = os.Remove(IdentityPath(l.dir))
}

// writeIdentity is atomic (temp file + rename) so a concurrent reader
// never sees a partial token.
func writeIdentity(dir string, id Identity) error {
	b, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".worker-*.json")
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
	return os.Rename(tmp.Name(), IdentityPath(dir))
}
