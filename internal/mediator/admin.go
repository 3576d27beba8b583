package mediator

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/prekucki/gu-blender-mediator/internal/hubsdk"
	"github.com/prekucki/gu-blender-mediator/internal/marketplace"
	"github.com/prekucki/gu-blender-mediator/internal/sessiongateway"
	"github.com/prekucki/gu-blender-mediator/internal/workman"
)

// Admin exposes the three admin-surface endpoints over HTTP: spawning a
// gateway for a hub session, listing active sessions, and reading
// per-session statistics. One hub connection and one peer reservation
// registry (workman.WorkMan, itself a process-wide singleton) are shared by
// every gateway this process spawns.
type Admin struct {
	registry *Registry
	hub      *hubsdk.Client
	workman  *workman.WorkMan
	nodeID   string
	log      *zap.SugaredLogger
}

// NewAdmin builds an Admin surface.
func NewAdmin(registry *Registry, hub *hubsdk.Client, wm *workman.WorkMan, nodeID string, log *zap.SugaredLogger) *Admin {
	return &Admin{registry: registry, hub: hub, workman: wm, nodeID: nodeID, log: log}
}

type spawnRequest struct {
	SessionID uint64 `json:"session_id"`
}

// SpawnGateway reads the hub session's configuration metadata, spawns a
// gateway for it, and registers it. Grounded on spec.md §4.6 and on the
// shape of original_source/src/activator.rs's (unimplemented) activate_gateway.
func (a *Admin) SpawnGateway(w http.ResponseWriter, r *http.Request) {
	var req spawnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sessionID := strconv.FormatUint(req.SessionID, 10)
	ctx := r.Context()

	md, err := a.hub.Session(sessionID).Config(ctx)
	if err != nil {
		a.log.Errorw("failed to read hub session config", "session_id", sessionID, "err", err)
		http.Error(w, "hub session unavailable", http.StatusBadGateway)
		return
	}

	mkt := marketplace.New(md.GwURL, nil)
	cfg := sessiongateway.Config{
		NodeID:    a.nodeID,
		GwURL:     md.GwURL,
		DavURL:    md.DavURL,
		Docker:    md.Docker,
		EthAddr:   md.Account,
		SessionID: sessionID,
	}

	gw := sessiongateway.New(cfg, mkt, a.hub, a.workman, a.log)
	if err := gw.Start(); err != nil {
		a.log.Errorw("failed to start gateway", "session_id", sessionID, "err", err)
		http.Error(w, "failed to start gateway: "+err.Error(), http.StatusInternalServerError)
		return
	}

	a.registry.Register(sessionID, gw)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"session_id": sessionID})
}

// ListSessions returns the set of active session keys.
func (a *Admin) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids := a.registry.ActiveSessions()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ids)
}

// SessionStats returns the aggregated statistics for one session.
func (a *Admin) SessionStats(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	gw, ok := a.registry.Get(sessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	stats := gw.AggregateStats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}
