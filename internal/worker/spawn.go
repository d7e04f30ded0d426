package worker

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// LogFileName is the daemon's log under the config directory.
const LogFileName = "daemon.log"

// Spawn launches the worker daemon detached from the caller: its own
// session, stdio routed away from the caller's terminal. The daemon
// survives the caller's exit and its process-group signals.
func Spawn(configDir, daemonPath string) (int, error) {
	if daemonPath == "" {
		p, err := findDaemon()
		if err != nil {
			return 0, err
		}
		daemonPath = p
	}

	logf, err := os.OpenFile(filepath.Join(configDir, LogFileName),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open daemon log: %w", err)
	}
	defer logf.Close()

	devnull, err := os.Open(os.DevNull)
	if err != nil {
		return 0, err
	}
	defer devnull.Close()

	cmd := exec.Command(daemonPath, "-config-dir", configDir)
	cmd.Stdin = devnull
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.SysProcAttr = detachAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", daemonPath, err)
	}
	pid := cmd.Process.Pid
	// Released, not waited: the daemon belongs to its own session now.
	_ = cmd.Process.Release()
	return pid, nil
}

// findDaemon prefers a daemon binary next to the calling executable,
// then falls back to PATH.
func findDaemon() (string, error) {
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), DaemonName)
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	p, err := exec.LookPath(DaemonName)
	if err != nil {
		return "", fmt.Errorf("%s not found next to executable or in PATH: %w", DaemonName, err)
	}
	return p, nil
}
