package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestAdminMetrics(t *testing.T) {
	s, conn := newTestServer(t, testGrid(), 2)
	now := time.UnixMilli(1_000_000)
	connect(t, s, conn, clientAddr(0), now)
	s.HandleDatagram(clientAddr(0), []byte{0}, now)
	s.Tick(now)

	rec := httptest.NewRecorder()
	s.AdminHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		State   string         `json:"state"`
		Metrics map[string]any `json:"metrics"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State != "waiting" {
		t.Fatalf("state = %q", body.State)
	}
	m := body.Metrics
	if m["players"] != float64(1) || m["malformed_packets"] != float64(1) || m["tick_count"] != float64(1) {
		t.Fatalf("unexpected metrics %v", m)
	}
}

func TestAdminHealthz(t *testing.T) {
	s, _ := newTestServer(t, testGrid(), 2)
	rec := httptest.NewRecorder()
	s.AdminHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestSpectatorReceivesFrames(t *testing.T) {
	s, conn := newTestServer(t, testGrid(), 2)
	now := time.UnixMilli(1_000_000)
	connect(t, s, conn, clientAddr(0), now)

	ts := httptest.NewServer(s.AdminHandler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/spectate"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.viewers.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("viewer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Tick(now)

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame SpectatorFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if len(frame.Players) != 1 || frame.Timestamp == 0 {
		t.Fatalf("unexpected frame %+v", frame)
	}
}
