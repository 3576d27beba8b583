package hubsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	var updateBody []Command
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "sess-1"})
	})
	mux.HandleFunc("PUT /sessions/sess-1/config", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /sessions/sess-1/peers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /sessions/sess-1/peers/node-a/sessions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "peersess-1"})
	})
	mux.HandleFunc("POST /sessions/sess-1/peers/node-a/sessions/peersess-1/update", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&updateBody)
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx := context.Background()

	session, err := c.NewSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)

	require.NoError(t, session.SetConfig(ctx, Metadata{Docker: true, Status: "working"}))
	require.NoError(t, session.AddPeers(ctx, []string{"node-a"}))

	peerSession, err := session.Peer("node-a").NewSession(ctx, DockerBlenderSession())
	require.NoError(t, err)

	cmds := []Command{
		OpenCommand(),
		WaitCommand(),
		UploadFileCommand("hub://blob/1", "/golem/output/out0001.png", Raw),
	}
	require.NoError(t, peerSession.Update(ctx, cmds))

	require.Len(t, updateBody, 3)
	assert.Equal(t, kindWait, updateBody[1].Kind)
}

func TestListPeers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Peer{{NodeID: "a"}, {NodeID: "b"}})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ids, err := c.ListPeers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
