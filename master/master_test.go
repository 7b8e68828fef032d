package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestMux(t *testing.T) (*Registry, http.Handler) {
	t.Helper()
	log := zap.NewNop().Sugar()
	reg := NewRegistry(time.Minute, log)
	return reg, NewMux(reg, log)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data)))
	return rec
}

func TestRegisterHeartbeatList(t *testing.T) {
	reg, h := newTestMux(t)

	rec := post(t, h, "/servers/register", registerRequest{Name: "alpha", Address: "1.2.3.4:8080", MaxPlayers: 8})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}
	var resp registerResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := uuid.Parse(resp.ID); err != nil {
		t.Fatalf("id %q is not a uuid: %v", resp.ID, err)
	}

	if rec := post(t, h, "/servers/heartbeat", heartbeatRequest{ID: resp.ID, Players: 3}); rec.Code != http.StatusOK {
		t.Fatalf("heartbeat status = %d", rec.Code)
	}
	if rec := post(t, h, "/servers/heartbeat", heartbeatRequest{ID: "missing"}); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown heartbeat status = %d", rec.Code)
	}

	list := httptest.NewRecorder()
	h.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/servers", nil))
	var servers []ServerInfo
	if err := json.NewDecoder(list.Body).Decode(&servers); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(servers) != 1 || servers[0].Players != 3 || servers[0].Name != "alpha" {
		t.Fatalf("unexpected list %+v", servers)
	}
	if got := reg.List(""); len(got) != 1 {
		t.Fatalf("registry holds %d servers", len(got))
	}
}

func TestRegisterValidation(t *testing.T) {
	_, h := newTestMux(t)
	if rec := post(t, h, "/servers/register", registerRequest{Name: "no address"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/servers/register", bytes.NewReader([]byte("{"))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid json status = %d", rec.Code)
	}
}

func TestExpire(t *testing.T) {
	reg := NewRegistry(time.Minute, zap.NewNop().Sugar())
	now := time.Unix(1000, 0)
	reg.now = func() time.Time { return now }

	stale := reg.Register(ServerInfo{Name: "stale", Address: "a"})
	now = now.Add(30 * time.Second)
	fresh := reg.Register(ServerInfo{Name: "fresh", Address: "b"})
	now = now.Add(40 * time.Second)

	if n := reg.Expire(); n != 1 {
		t.Fatalf("expired %d servers, want 1", n)
	}
	if reg.Heartbeat(stale, 0) {
		t.Fatalf("stale server should be gone")
	}
	if !reg.Heartbeat(fresh, 0) {
		t.Fatalf("fresh server should remain")
	}
}

func TestDeregisterAndRegionFilter(t *testing.T) {
	reg, h := newTestMux(t)
	eu := reg.Register(ServerInfo{Name: "eu-1", Address: "a", Region: "eu"})
	reg.Register(ServerInfo{Name: "us-1", Address: "b", Region: "us"})

	list := httptest.NewRecorder()
	h.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/servers?region=eu", nil))
	var servers []ServerInfo
	if err := json.NewDecoder(list.Body).Decode(&servers); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(servers) != 1 || servers[0].ID != eu {
		t.Fatalf("region filter returned %+v", servers)
	}

	del := httptest.NewRecorder()
	h.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/servers/"+eu, nil))
	if del.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", del.Code)
	}
	again := httptest.NewRecorder()
	h.ServeHTTP(again, httptest.NewRequest(http.MethodDelete, "/servers/"+eu, nil))
	if again.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", again.Code)
	}
	if got := reg.List(""); len(got) != 1 || got[0].Name != "us-1" {
		t.Fatalf("remaining servers %+v", got)
	}
}
