package worker

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfComm returns this test process's name, so a recorded identity
// with our pid reads as alive.
func selfComm(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("/proc/self/comm")
	if err != nil {
		t.Skip("no /proc; identity liveness is linux-only")
	}
	return strings.TrimSpace(string(b))
}

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	comm := selfComm(t)

	lease, err := Acquire(dir, "/dev/hidraw1", comm, zerolog.Nop())
	require.NoError(t, err)

	id, err := LoadIdentity(dir)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), id.PID)
	assert.Equal(t, "/dev/hidraw1", id.Device)
	assert.NotEmpty(t, id.Token)
	assert.True(t, id.Alive(comm))

	lease.Release()
	_, err = LoadIdentity(dir)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAcquireRefusesLiveWorker(t *testing.T) {
	dir := t.TempDir()
	comm := selfComm(t)

	lease, err := Acquire(dir, "/dev/hidraw1", comm, zerolog.Nop())
	require.NoError(t, err)
	defer lease.Release()

	_, err = Acquire(dir, "/dev/hidraw1", comm, zerolog.Nop())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireReclaimsStaleToken(t *testing.T) {
	dir := t.TempDir()

	// Our own pid, but the expected process name does not match: the
	// pid was recycled by some other program.
	stale := Identity{PID: os.Getpid(), Token: "stale-token", Device: "/dev/hidraw1"}
	require.NoError(t, writeIdentity(dir, stale))

	lease, err := Acquire(dir, "/dev/hidraw1", "some-other-daemon", zerolog.Nop())
	require.NoError(t, err, "stale token must be reclaimable")
	defer lease.Release()

	id, err := LoadIdentity(dir)
	require.NoError(t, err)
	assert.NotEqual(t, "stale-token", id.Token)
}

func TestAcquireConcurrentSingleWinner(t *testing.T) {
	dir := t.TempDir()
	comm := selfComm(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	leases := make(chan *Lease, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := Acquire(dir, "/dev/hidraw1", comm, zerolog.Nop())
			if err == nil {
				leases <- l
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	close(leases)

	winners := 0
	for err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyRunning)
		}
	}
	assert.Equal(t, 1, winners, "exactly one worker may own the device")
	for l := range leases {
		l.Release()
	}
}

func TestLoadIdentityMissingOrBroken(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadIdentity(dir)
	assert.ErrorIs(t, err, ErrUnavailable)

	require.NoError(t, os.WriteFile(IdentityPath(dir), []byte("not json"), 0o644))
	_, err = LoadIdentity(dir)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReleaseLeavesForeignToken(t *testing.T) {
	dir := t.TempDir()
	comm := selfComm(t)

	lease, err := Acquire(dir, "/dev/hidraw1", comm, zerolog.Nop())
	require.NoError(t, err)

	// Someone else reclaimed and rewrote the token while we stalled.
	foreign := Identity{PID: os.Getpid(), Token: "foreign-token", Device: "/dev/hidraw1"}
	require.NoError(t, writeIdentity(dir, foreign))

	lease.Release()
	id, err := LoadIdentity(dir)
	require.NoError(t, err, "foreign token must survive our release")
	assert.Equal(t, "foreign-token", id.Token)
}
