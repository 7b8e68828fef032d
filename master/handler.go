package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

const maxRequestBody = 1 << 16 // 64 KB

type registerRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
}

type registerResponse struct {
	ID string `json:"id"`
}

type heartbeatRequest struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

type apiError struct {
	Error string `json:"error"`
}

// api serves the master endpoints on top of a Registry.
type api struct {
	reg *Registry
	log *zap.SugaredLogger
}

// NewMux wires the master endpoints.
func NewMux(reg *Registry, log *zap.SugaredLogger) *http.ServeMux {
	a := &api{reg: reg, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /servers", a.list)
	mux.HandleFunc("POST /servers/register", a.register)
	mux.HandleFunc("POST /servers/heartbeat", a.heartbeat)
	mux.HandleFunc("DELETE /servers/{id}", a.deregister)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (a *api) list(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.reg.List(r.URL.Query().Get("region")))
}

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Name == "" || req.Address == "" {
		a.writeJSON(w, http.StatusBadRequest, apiError{Error: "name and address required"})
		return
	}

	id := a.reg.Register(ServerInfo{
		Name:       req.Name,
		Address:    req.Address,
		Players:    req.Players,
		MaxPlayers: req.MaxPlayers,
		Version:    req.Version,
		Region:     req.Region,
	})
	a.log.Infof("registered server %q at %s (id=%s)", req.Name, req.Address, id)
	a.writeJSON(w, http.StatusCreated, registerResponse{ID: id})
}

func (a *api) heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if !a.decode(w, r, &req) {
		return
	}
	if !a.reg.Heartbeat(req.ID, req.Players) {
		a.writeJSON(w, http.StatusNotFound, apiError{Error: "unknown server"})
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) deregister(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.reg.Remove(id) {
		a.writeJSON(w, http.StatusNotFound, apiError{Error: "unknown server"})
		return
	}
	a.log.Infof("deregistered server %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a size limited JSON body, answering 400 itself on failure.
func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			a.writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: "body too large"})
			return false
		}
		a.writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json"})
		return false
	}
	return true
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warnf("encode response: %v", err)
	}
}
