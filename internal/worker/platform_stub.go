//go:build !linux

package worker

import "syscall"

// Non-linux builds have no hidraw device to own; every recorded
// identity reads as stale.
func processAlive(pid int, procName string) bool { return false }

func detachAttr() *syscall.SysProcAttr { return nil }

type dirLock struct{}

func lockAcquireDir(string) (*dirLock, error) { return &dirLock{}, nil }

func (*dirLock) release() {}
