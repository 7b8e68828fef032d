package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const heartbeatInterval = 30 * time.Second

// errMasterForgot means the master no longer knows our id.
var errMasterForgot = errors.New("master lost registration")

// PlayerCounter reports the current number of connected players.
type PlayerCounter interface {
	PlayerCount() int
}

// Announcement is what a game server tells the master about itself.
type Announcement struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
}

type registered struct {
	ID string `json:"id"`
}

type heartbeat struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

// Registration keeps this server listed on a master server: it registers
// on Start, heartbeats the player count, re-registers when the master has
// forgotten it and deregisters on Stop.
type Registration struct {
	masterURL string
	info      Announcement
	players   PlayerCounter
	client    *http.Client
	log       *zap.SugaredLogger
	interval  time.Duration

	mu       sync.Mutex
	serverID string

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRegistration(masterURL, name, address, version, region string, maxPlayers int, players PlayerCounter, log *zap.SugaredLogger) *Registration {
	return &Registration{
		masterURL: masterURL,
		info: Announcement{
			Name:       name,
			Address:    address,
			MaxPlayers: maxPlayers,
			Version:    version,
			Region:     region,
		},
		players:  players,
		client:   &http.Client{Timeout: 5 * time.Second},
		log:      log.Named("registration"),
		interval: heartbeatInterval,
	}
}

// Start registers once and heartbeats in the background until Stop.
func (r *Registration) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	if err := r.register(ctx); err != nil {
		r.log.Warnf("initial registration failed: %v", err)
	}
	go func() {
		defer close(r.done)
		r.heartbeatLoop(ctx)
	}()
}

// Stop ends the heartbeats and removes this server from the listing.
func (r *Registration) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.deregister(ctx); err != nil {
		r.log.Warnf("deregister failed: %v", err)
	}
}

// ServerID is the id assigned by the master, empty until registered.
func (r *Registration) ServerID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.serverID
}

func (r *Registration) setServerID(id string) {
	r.mu.Lock()
	r.serverID = id
	r.mu.Unlock()
}

func (r *Registration) register(ctx context.Context) error {
	info := r.info
	info.Players = r.players.PlayerCount()

	var out registered
	if err := r.do(ctx, http.MethodPost, "/servers/register", info, http.StatusCreated, &out); err != nil {
		return err
	}
	r.setServerID(out.ID)
	r.log.Infof("registered with master (id=%s)", out.ID)
	return nil
}

func (r *Registration) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.sendHeartbeat(ctx); err != nil {
				r.log.Warnf("heartbeat failed: %v", err)
			}
		}
	}
}

func (r *Registration) sendHeartbeat(ctx context.Context) error {
	id := r.ServerID()
	if id == "" {
		return r.register(ctx)
	}

	err := r.do(ctx, http.MethodPost, "/servers/heartbeat",
		heartbeat{ID: id, Players: r.players.PlayerCount()}, http.StatusOK, nil)
	if errors.Is(err, errMasterForgot) {
		r.log.Info("master lost our registration, re-registering")
		r.setServerID("")
		return r.register(ctx)
	}
	return err
}

func (r *Registration) deregister(ctx context.Context) error {
	id := r.ServerID()
	if id == "" {
		return nil
	}
	err := r.do(ctx, http.MethodDelete, "/servers/"+id, nil, http.StatusNoContent, nil)
	if err != nil && !errors.Is(err, errMasterForgot) {
		return err
	}
	r.setServerID("")
	return nil
}

// do sends in as JSON (when non-nil) and decodes the reply into out (when
// non-nil). A 404 is reported as errMasterForgot.
func (r *Registration) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.masterURL+path, &body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, errMasterForgot)
	case resp.StatusCode != want:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	}
	return nil
}
