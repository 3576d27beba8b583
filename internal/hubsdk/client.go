// Package hubsdk is the HTTP client for the compute hub: hub sessions, peer
// container sessions, blobs, and peer listing. Grounded on the operations
// original_source/src/gateway.rs, task_worker.rs and workman.rs drive
// through gu_client::r#async::HubConnection.
package hubsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/prekucki/gu-blender-mediator/internal/xerrors"
)

// Client talks to one hub instance over HTTP+JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client rooted at baseURL. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return xerrors.Wrap(err, "failed to encode request body")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return xerrors.Wrapf(err, "failed to build %s request for %s", method, path)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "%s request failed for %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return xerrors.Newf("hub: unexpected status %d for %s %s", resp.StatusCode, method, path)
	}
	if out == nil {
		return nil
	}
	return xerrors.Wrap(json.NewDecoder(resp.Body).Decode(out), "failed to decode hub response")
}

// ListPeers returns every peer id currently known to the hub.
func (c *Client) ListPeers(ctx context.Context) ([]string, error) {
	var peers []Peer
	if err := c.do(ctx, http.MethodGet, "/peer", nil, &peers); err != nil {
		return nil, err
	}
	ids := make([]string, len(peers))
	for i, p := range peers {
		ids[i] = p.NodeID
	}
	return ids, nil
}

// Session is a handle on one hub session.
type Session struct {
	ID     string
	client *Client
}

// NewSession creates a fresh hub session.
func (c *Client) NewSession(ctx context.Context) (*Session, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, &created); err != nil {
		return nil, xerrors.Wrap(err, "failed to create hub session")
	}
	return &Session{ID: created.ID, client: c}, nil
}

// Session adopts an already-existing hub session by id.
func (c *Client) Session(id string) *Session {
	return &Session{ID: id, client: c}
}

func (s *Session) path(suffix string) string {
	return fmt.Sprintf("/sessions/%s%s", s.ID, suffix)
}

// Config reads the session's configuration metadata.
func (s *Session) Config(ctx context.Context) (Metadata, error) {
	var md Metadata
	err := s.client.do(ctx, http.MethodGet, s.path("/config"), nil, &md)
	return md, err
}

// SetConfig overwrites the session's configuration metadata.
func (s *Session) SetConfig(ctx context.Context, md Metadata) error {
	return s.client.do(ctx, http.MethodPut, s.path("/config"), md, nil)
}

// AddPeers attaches peers to this session so they can host sessions of it.
func (s *Session) AddPeers(ctx context.Context, nodeIDs []string) error {
	body := struct {
		NodeIDs []string `json:"nodeIds"`
	}{NodeIDs: nodeIDs}
	return s.client.do(ctx, http.MethodPost, s.path("/peers"), body, nil)
}

// NewBlob allocates a fresh upload destination in the hub's blob store.
func (s *Session) NewBlob(ctx context.Context) (Blob, error) {
	var blob Blob
	err := s.client.do(ctx, http.MethodPost, s.path("/blobs"), nil, &blob)
	return blob, err
}

// Peer returns a handle for creating container sessions on nodeID within
// this hub session.
func (s *Session) Peer(nodeID string) *PeerHandle {
	return &PeerHandle{session: s, nodeID: nodeID}
}

// PeerHandle scopes peer-session operations to one node within a Session.
type PeerHandle struct {
	session *Session
	nodeID  string
}

// NewSession materializes spec as a container session on this peer.
func (p *PeerHandle) NewSession(ctx context.Context, spec CreateSession) (*PeerSession, error) {
	var created struct {
		ID string `json:"id"`
	}
	path := p.session.path(fmt.Sprintf("/peers/%s/sessions", p.nodeID))
	if err := p.session.client.do(ctx, http.MethodPost, path, spec, &created); err != nil {
		return nil, xerrors.Wrapf(err, "failed to create peer session on %s", p.nodeID)
	}
	return &PeerSession{id: created.ID, session: p.session, nodeID: p.nodeID}, nil
}

// PeerSession is a materialized container environment on one peer.
type PeerSession struct {
	id      string
	session *Session
	nodeID  string
}

// Update sends a command batch to the peer session and waits for it to
// finish executing.
func (ps *PeerSession) Update(ctx context.Context, commands []Command) error {
	path := ps.session.path(fmt.Sprintf("/peers/%s/sessions/%s/update", ps.nodeID, ps.id))
	return ps.session.client.do(ctx, http.MethodPost, path, commands, nil)
}
