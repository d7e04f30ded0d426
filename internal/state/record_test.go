package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/kbdrgb/internal/anim"
)

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	spec := anim.Spec{
		Style:     anim.Breathing,
		Color:     anim.Color{R: 12, G: 34, B: 56},
		Intensity: 200,
		Speed:     0.75,
		Device:    "/dev/hidraw1",
	}
	require.NoError(t, Save(path, FromSpec(spec)))

	rec, err := Load(path)
	require.NoError(t, err)
	got, err := rec.Spec()
	require.NoError(t, err)

	assert.Equal(t, spec.Style, got.Style)
	assert.Equal(t, spec.Color, got.Color)
	assert.Equal(t, spec.Intensity, got.Intensity)
	assert.Equal(t, spec.Speed, got.Speed)
	assert.Equal(t, spec.Device, got.Device)
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, os.WriteFile(path, []byte(`{"speed": 0.5}`), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrCorrupt, "record without a style is unusable")
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, Save(path, FromSpec(anim.Spec{Style: anim.Static})))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".state-") {
			t.Fatalf("temp file %s left behind", e.Name())
		}
	}
	assert.Len(t, entries, 1)
}

func TestRecordWithUnknownStyle(t *testing.T) {
	rec := Record{Style: "disco"}
	_, err := rec.Spec()
	assert.ErrorIs(t, err, ErrCorrupt)
}
