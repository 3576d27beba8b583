package config

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prekucki/gu-blender-mediator/internal/xerrors"
)

const localServiceDirectoryURL = "http://127.0.0.1:61622/service/local"

// DefaultHubURL is the address gu_client::r#async::HubConnection::default()
// resolves to: the hub daemon always runs alongside the provider on the
// loopback interface, on the same port the service directory listens on.
const DefaultHubURL = "http://127.0.0.1:61622"

type registerCommand struct {
	Command string `json:"command"`
	CmdName string `json:"cmdName"`
	URL     string `json:"url"`
}

// RegisterWithServiceDirectory registers this process with the local
// plugin/service directory, mirroring original_source/src/plug_api.rs.
// Failure is never fatal — it is logged by the caller and ignored.
func RegisterWithServiceDirectory(ctx context.Context, selfURL string) error {
	body, err := json.Marshal(registerCommand{
		Command: "registerCommand",
		CmdName: "gu-blender-mediator",
		URL:     selfURL,
	})
	if err != nil {
		return xerrors.Wrap(err, "failed to encode service directory registration")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, localServiceDirectoryURL, bytes.NewReader(body))
	if err != nil {
		return xerrors.Wrap(err, "failed to build service directory request")
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return xerrors.Wrap(err, "service directory unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return xerrors.Newf("service directory registration failed: status %d", resp.StatusCode)
	}
	return nil
}
