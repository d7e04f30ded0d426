package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/kbdrgb/internal/anim"
	"github.com/coreman2200/kbdrgb/internal/zones"
)

func TestPushFoldsUpdates(t *testing.T) {
	m := New(20, zerolog.Nop())

	m.Push(anim.Frame{
		ID:    1,
		Style: anim.Ripple,
		Updates: []anim.ZoneUpdate{
			{Range: zones.Full(20), Color: anim.Color{R: 255}, Intensity: 51},
			{Range: zones.Single(10), Color: anim.Color{R: 255}, Intensity: 64},
		},
	})
	m.Push(anim.Frame{
		ID:    2,
		Style: anim.Ripple,
		Updates: []anim.ZoneUpdate{
			{Range: zones.Single(10), Color: anim.Color{R: 255}, Intensity: 62},
		},
	})

	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.Equal(t, uint64(2), m.frameID)
	assert.Equal(t, uint8(62), m.levels[10], "later frame overwrites the struck zone")
	assert.Equal(t, uint8(51), m.levels[0], "baseline untouched by partial frames")
	assert.Equal(t, anim.Ripple, m.style)
}

func TestHandleHealth(t *testing.T) {
	m := New(20, zerolog.Nop())
	m.Push(anim.Frame{ID: 7, Style: anim.Breathing})

	rr := httptest.NewRecorder()
	m.HandleHealth(rr, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, 200, rr.Code)
	var resp struct {
		FrameID   uint64  `json:"frame_id"`
		UptimeS   float64 `json:"uptime_s"`
		Style     string  `json:"style"`
		ZoneCount int     `json:"zone_count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, uint64(7), resp.FrameID)
	assert.Equal(t, "breathing", resp.Style)
	assert.Equal(t, 20, resp.ZoneCount)
	assert.GreaterOrEqual(t, resp.UptimeS, 0.0)
}

func TestFramesFeedBroadcasts(t *testing.T) {
	m := New(20, zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(m.HandleFrames))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration happens in the upgrade handler; wait for it before
	// pushing.
	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)
	m.Push(anim.Frame{
		ID:    3,
		Style: anim.Static,
		Updates: []anim.ZoneUpdate{
			{Range: zones.Full(20), Color: anim.Color{B: 255}, Intensity: 255},
		},
	})

	var snap struct {
		FrameID     uint64  `json:"frame_id"`
		Style       string  `json:"style"`
		Intensities []uint8 `json:"intensities"`
	}
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, uint64(3), snap.FrameID)
	assert.Equal(t, "static", snap.Style)
	require.Len(t, snap.Intensities, 20)
	assert.Equal(t, uint8(255), snap.Intensities[0])
}
