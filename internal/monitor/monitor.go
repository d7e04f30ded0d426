// Package monitor serves a read-only localhost view of the running
// animation: a /health JSON endpoint and a /frames websocket feed. It
// consumes the engine's frame sink and never touches the transport.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coreman2200/kbdrgb/internal/anim"
)

const writeDeadline = 200 * time.Millisecond

type Monitor struct {
	mu      sync.RWMutex
	style   anim.Style
	levels  []uint8
	colors  []anim.Color
	frameID uint64
	start   time.Time
	clients map[*websocket.Conn]bool

	log zerolog.Logger
}

func New(zoneCount int, log zerolog.Logger) *Monitor {
	return &Monitor{
		levels:  make([]uint8, zoneCount),
		colors:  make([]anim.Color, zoneCount),
		start:   time.Now(),
		clients: map[*websocket.Conn]bool{},
		log:     log,
	}
}

// Push consumes one emitted frame from the engine sink, folds it into
// the per-zone shadow state, and broadcasts a snapshot.
func (m *Monitor) Push(f anim.Frame) {
	m.mu.Lock()
	m.style = f.Style
	m.frameID = f.ID
	for _, u := range f.Updates {
		for z := u.Range.Start; z <= u.Range.End && z < len(m.levels); z++ {
			if z < 0 {
				continue
			}
			m.levels[z] = u.Intensity
			m.colors[z] = u.Color
		}
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for c := range m.clients {
		c.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			m.log.Debug().Err(err).Msg("write frame")
		}
	}
}

type snapshot struct {
	T           int64   `json:"t"`
	FrameID     uint64  `json:"frame_id"`
	Style       string  `json:"style"`
	Intensities []uint8 `json:"intensities"`
}

func (m *Monitor) snapshotLocked() snapshot {
	levels := make([]uint8, len(m.levels))
	copy(levels, m.levels)
	return snapshot{
		T:           time.Now().UnixNano(),
		FrameID:     m.frameID,
		Style:       string(m.style),
		Intensities: levels,
	}
}

func (m *Monitor) HandleHealth(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := map[string]any{
		"frame_id":   m.frameID,
		"uptime_s":   time.Since(m.start).Seconds(),
		"style":      string(m.style),
		"zone_count": len(m.levels),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (m *Monitor) HandleFrames(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	m.mu.Lock()
	m.clients[conn] = true
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.clients, conn)
			m.mu.Unlock()
			conn.Close()
		}()
		// Read loop only to detect close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Serve blocks on the HTTP listener until ctx is cancelled.
func (m *Monitor) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.HandleHealth)
	mux.HandleFunc("/frames", m.HandleFrames)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	m.log.Info().Str("addr", addr).Msg("monitor listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
