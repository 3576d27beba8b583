package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/prekucki/gu-blender-mediator/internal/xerrors"
)

// TaskType is fixed for this mediator, per original_source/src/gateway.rs's task_type().
const TaskType = "Blender"

// Client talks to one marketplace instance over HTTP+JSON.
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

func (c *Client) url(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return xerrors.Wrap(err, "failed to encode request body")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, &reqBody)
	if err != nil {
		return xerrors.Wrapf(err, "failed to build request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "request failed for %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return xerrors.Newf("marketplace: unexpected status %d for %s", resp.StatusCode, path)
	}
	if out == nil {
		return nil
	}
	return xerrors.Wrap(json.NewDecoder(resp.Body).Decode(out), "failed to decode response")
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return xerrors.Wrapf(err, "failed to build request for %s", path)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "request failed for %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return xerrors.Newf("marketplace: unexpected status %d for %s", resp.StatusCode, path)
	}
	return xerrors.Wrap(json.NewDecoder(resp.Body).Decode(out), "failed to decode response")
}

// Subscribe registers the provider with the marketplace. Performed once at session startup.
func (c *Client) Subscribe(ctx context.Context, nodeID string, sub Subscription) error {
	return c.postJSON(ctx, c.url("/provider/%s/%s/subscribe", nodeID, TaskType), sub, nil)
}

// FetchEvents polls for events with id greater than lastEventID, in order.
func (c *Client) FetchEvents(ctx context.Context, nodeID string, lastEventID int64) ([]Event, error) {
	var events []Event
	path := c.url("/provider/%s/%s/events?last_event_id=%d", nodeID, TaskType, lastEventID)
	if err := c.getJSON(ctx, path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// WantToComputeTask signals the provider's interest in computing taskID,
// either at task start or after a successful verification.
func (c *Client) WantToComputeTask(ctx context.Context, nodeID, taskID string) error {
	return c.postJSON(ctx, c.url("/provider/%s/%s/want/%s", nodeID, TaskType, taskID), nil, nil)
}

// ConfirmSubtask is fired and forgotten on every DoSubTask.
func (c *Client) ConfirmSubtask(ctx context.Context, nodeID, subtaskID string) error {
	return c.postJSON(ctx, c.url("/provider/%s/%s/confirm/%s", nodeID, TaskType, subtaskID), nil, nil)
}

// SubtaskResult reports a render outcome back to the marketplace.
func (c *Client) SubtaskResult(ctx context.Context, nodeID, subtaskID string, status SubtaskResultStatus, resultPath string) error {
	body := subtaskResultBody{Status: status, ResultPath: resultPath}
	return c.postJSON(ctx, c.url("/provider/%s/%s/result/%s", nodeID, TaskType, subtaskID), body, nil)
}
