package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/planeflight/hido/shared/messages"
)

const spectatorQueueSize = 16

// SpectatorFrame is the JSON document streamed to viewers once per tick.
type SpectatorFrame struct {
	Timestamp uint64                 `json:"ts"`
	Players   []messages.PlayerState `json:"players"`
	Bullets   []messages.BulletState `json:"bullets"`
}

type spectator struct {
	ws   *websocket.Conn
	send chan []byte
}

// enqueue never blocks; frames are dropped for viewers that fall behind.
func (v *spectator) enqueue(b []byte) {
	select {
	case v.send <- b:
	default:
	}
}

func (v *spectator) writePump() {
	defer v.ws.Close()
	for msg := range v.send {
		_ = v.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := v.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// SpectatorHub fans tick frames out to websocket viewers.
type SpectatorHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	viewers map[*spectator]struct{}
	closed  bool
}

func NewSpectatorHub() *SpectatorHub {
	return &SpectatorHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		viewers: make(map[*spectator]struct{}),
	}
}

// Publish queues frame for every viewer. It is a no-op without viewers so
// the tick does not pay for encoding.
func (h *SpectatorHub) Publish(frame SpectatorFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.viewers) == 0 {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	for v := range h.viewers {
		v.enqueue(data)
	}
}

func (h *SpectatorHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// ServeWS upgrades the request and streams frames until the viewer goes away.
func (h *SpectatorHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	v := &spectator{ws: ws, send: make(chan []byte, spectatorQueueSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = ws.Close()
		return
	}
	h.viewers[v] = struct{}{}
	h.mu.Unlock()

	go v.writePump()

	// viewers never send anything meaningful; reading detects the close
	ws.SetReadLimit(512)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(v)
}

func (h *SpectatorHub) remove(v *spectator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[v]; ok {
		delete(h.viewers, v)
		close(v.send)
	}
}

// Close disconnects every viewer and rejects new ones.
func (h *SpectatorHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for v := range h.viewers {
		delete(h.viewers, v)
		close(v.send)
	}
}

// AdminHandler serves /metrics, /healthz and /spectate.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"name":       s.cfg.Name,
			"state":      s.loop.State().String(),
			"spectators": s.viewers.Count(),
			"metrics":    s.metrics.Snapshot(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/spectate", s.viewers.ServeWS)
	return mux
}

// StartAdmin serves the admin handler on addr in the background.
func (s *Server) StartAdmin(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.AdminHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("admin server: %v", err)
		}
	}()
	s.log.Infof("admin listening on %s", addr)
	return srv
}
