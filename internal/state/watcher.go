package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const pollInterval = time.Second

// Watcher delivers state-record changes to its callback. fsnotify gives
// sub-second latency; a 1s poll backs it up on filesystems where the
// rename-into-place event is unreliable.
type Watcher struct {
	path     string
	log      zerolog.Logger
	onRecord func(Record)

	lastMod time.Time
}

// NewWatcher watches path (the state record file). The callback runs on
// the watcher goroutine and must not block for long.
func NewWatcher(path string, log zerolog.Logger, onRecord func(Record)) *Watcher {
	return &Watcher{path: path, log: log, onRecord: onRecord}
}

// Run blocks until ctx is cancelled. The record present at startup is
// not redelivered; the caller applies it before starting the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if fi, err := os.Stat(w.path); err == nil {
		w.lastMod = fi.ModTime()
	}

	var events chan fsnotify.Event
	var fsErrs chan error
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn().Err(err).Msg("fsnotify unavailable; polling only")
	} else {
		defer fsw.Close()
		// Watch the directory: Save renames a temp file into place, and
		// a watch on the file itself would be lost on the first swap.
		if err := fsw.Add(filepath.Dir(w.path)); err != nil {
			w.log.Warn().Err(err).Msg("fsnotify watch failed; polling only")
		} else {
			events = fsw.Events
			fsErrs = fsw.Errors
		}
	}

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.check(true)
		case err := <-fsErrs:
			w.log.Warn().Err(err).Msg("fsnotify error")
		case <-poll.C:
			w.check(false)
		}
	}
}

// check reloads the record. The mtime guard keeps the poll ticker from
// redelivering, but two saves inside one coarse mtime tick would look
// identical to it, so a direct event for the path always reloads.
func (w *Watcher) check(fromEvent bool) {
	fi, err := os.Stat(w.path)
	if err != nil {
		return
	}
	if !fromEvent && !fi.ModTime().After(w.lastMod) {
		return
	}
	w.lastMod = fi.ModTime()

	rec, err := Load(w.path)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			w.log.Warn().Err(err).Msg("ignoring corrupt state record")
		}
		return
	}
	w.onRecord(rec)
}
