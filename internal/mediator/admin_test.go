package mediator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prekucki/gu-blender-mediator/internal/hubsdk"
	"github.com/prekucki/gu-blender-mediator/internal/workman"
)

func newHubStub(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions/42/config", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(hubsdk.Metadata{GwURL: srv.URL, DavURL: srv.URL})
	})
	mux.HandleFunc("PUT /sessions/42/config", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/provider/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv = httptest.NewServer(mux)
	return srv
}

func newTestAdmin(t *testing.T) (*Admin, *httptest.Server) {
	t.Helper()
	hubSrv := newHubStub(t)
	hub := hubsdk.New(hubSrv.URL, nil)
	wm := workman.New(noPeers{})
	reg := NewRegistry()
	admin := NewAdmin(reg, hub, wm, "node-1", zap.NewNop().Sugar())
	return admin, hubSrv
}

func TestSpawnGatewayRegistersAndReturnsSessionID(t *testing.T) {
	admin, hubSrv := newTestAdmin(t)
	defer hubSrv.Close()

	body, _ := json.Marshal(spawnRequest{SessionID: 42})
	req := httptest.NewRequest(http.MethodPost, "/gw", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	admin.SpawnGateway(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp["session_id"])

	ids := admin.registry.ActiveSessions()
	require.Len(t, ids, 1)
	assert.Equal(t, "42", ids[0])
}

func TestSpawnGatewayRejectsMalformedBody(t *testing.T) {
	admin, hubSrv := newTestAdmin(t)
	defer hubSrv.Close()

	req := httptest.NewRequest(http.MethodPost, "/gw", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()

	admin.SpawnGateway(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionStatsReturns404ForUnknownSession(t *testing.T) {
	admin, hubSrv := newTestAdmin(t)
	defer hubSrv.Close()

	req := httptest.NewRequest(http.MethodGet, "/gw/does-not-exist", nil)
	req.SetPathValue("session_id", "does-not-exist")
	rec := httptest.NewRecorder()

	admin.SessionStats(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSessionsReflectsRegistry(t *testing.T) {
	admin, hubSrv := newTestAdmin(t)
	defer hubSrv.Close()

	body, _ := json.Marshal(spawnRequest{SessionID: 42})
	req := httptest.NewRequest(http.MethodPost, "/gw", bytes.NewReader(body))
	admin.SpawnGateway(httptest.NewRecorder(), req)

	listReq := httptest.NewRequest(http.MethodGet, "/gw", nil)
	listRec := httptest.NewRecorder()
	admin.ListSessions(listRec, listReq)

	var ids []string
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &ids))
	assert.Equal(t, []string{"42"}, ids)
}
