package sessiongateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prekucki/gu-blender-mediator/internal/hubsdk"
	"github.com/prekucki/gu-blender-mediator/internal/marketplace"
	"github.com/prekucki/gu-blender-mediator/internal/workman"
)

type allPeers []string

func (a allPeers) ListPeers() ([]string, error) { return []string(a), nil }

func newTestGateway(t *testing.T) (*Gateway, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "sess-1"})
	})
	mux.HandleFunc("GET /sessions/sess-1/config", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(hubsdk.Metadata{})
	})
	mux.HandleFunc("PUT /sessions/sess-1/config", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)

	mkt := marketplace.New(srv.URL, nil)
	hub := hubsdk.New(srv.URL, nil)
	wm := workman.New(allPeers{"peer-a"})
	log := zap.NewNop().Sugar()

	g := New(Config{NodeID: "node-1", GwURL: srv.URL, DavURL: srv.URL, Docker: true}, mkt, hub, wm, log)
	require.NoError(t, g.Start())
	return g, srv
}

func TestTaskEventSpawnsWorkerAndAcks(t *testing.T) {
	g, srv := newTestGateway(t)
	defer srv.Close()
	defer g.Stop()

	g.processEvent(marketplace.Event{
		EventID: 1,
		Kind:    marketplace.EventTask,
		Task:    &marketplace.Task{TaskID: "T1", Deadline: 9999999999},
	})

	assert.EqualValues(t, 1, g.LastEventID())

	g.mu.Lock()
	_, ok := g.tasks["T1"]
	tasksStat := g.stats.Tasks
	g.mu.Unlock()
	assert.True(t, ok, "expected a worker for T1")
	assert.EqualValues(t, 1, tasksStat)
}

func TestResourceRoutesByResIDWhenPresent(t *testing.T) {
	g, srv := newTestGateway(t)
	defer srv.Close()
	defer g.Stop()

	g.spawnWorker(marketplace.Task{TaskID: "T1", Deadline: 9999999999})
	g.processEvent(marketplace.Event{
		EventID:  2,
		Kind:     marketplace.EventResource,
		Resource: &marketplace.Resource{TaskID: "T1", ResID: "T1", Path: "r/1"},
	})

	assert.EqualValues(t, 2, g.LastEventID())
}

func TestOutOfOrderAckNeverLowersWatermark(t *testing.T) {
	g, srv := newTestGateway(t)
	defer srv.Close()
	defer g.Stop()

	g.spawnWorker(marketplace.Task{TaskID: "T1", Deadline: 9999999999})
	g.processEvent(marketplace.Event{EventID: 7, Kind: marketplace.EventTask, Task: &marketplace.Task{TaskID: "T2", Deadline: 9999999999}})
	g.processEvent(marketplace.Event{EventID: 5, Kind: marketplace.EventSubtask, Subtask: &marketplace.Subtask{TaskID: "T1", SubtaskID: "S1"}})

	assert.EqualValues(t, 7, g.LastEventID(), "expected last_event_id to remain 7 after an out-of-order 5")
}

func TestUnknownEventKindIsNotAcked(t *testing.T) {
	g, srv := newTestGateway(t)
	defer srv.Close()
	defer g.Stop()

	g.processEvent(marketplace.Event{EventID: 1, Kind: "bogus"})
	assert.EqualValues(t, -1, g.LastEventID())
}

func TestMissingWorkerStillAcknowledges(t *testing.T) {
	g, srv := newTestGateway(t)
	defer srv.Close()
	defer g.Stop()

	g.processEvent(marketplace.Event{
		EventID: 3,
		Kind:    marketplace.EventSubtask,
		Subtask: &marketplace.Subtask{TaskID: "no-such-task", SubtaskID: "S1"},
	})
	assert.EqualValues(t, 3, g.LastEventID(), "expected event to be acked even with no matching worker")
}
