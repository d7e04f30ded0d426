//go:build linux

package worker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// processAlive checks signal-0 liveness and then the process name from
// /proc, so a recycled pid does not pass for a live worker.
func processAlive(pid int, procName string) bool {
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		// EPERM still means the process exists (a worker running as a
		// different user); the name check below decides.
		return false
	}
	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		// Alive but unverifiable; err on the side of not stealing the
		// device.
		return true
	}
	return strings.TrimSpace(string(comm)) == procName
}

// detachAttr puts the child in its own session so signals aimed at the
// launcher's process group never reach it.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

type dirLock struct{ f *os.File }

// lockAcquireDir serializes identity check-and-write across processes.
// flock is released by the kernel if the holder dies mid-write, so a
// crash never leaves the directory locked.
func lockAcquireDir(dir string) (*dirLock, error) {
	f, err := os.OpenFile(filepath.Join(dir, lockFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	return &dirLock{f: f}, nil
}

func (l *dirLock) release() {
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	_ = l.f.Close()
}
