// Package webdav issues the MKCOL/PUT requests a task worker needs against
// the rendering node's local WebDAV resource share. Grounded on
// original_source/src/dav.rs.
package webdav

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/prekucki/gu-blender-mediator/internal/xerrors"
)

const methodMkcol = "MKCOL"

// HTTPStatusError reports a WebDAV request that completed but returned an
// unexpected status code.
type HTTPStatusError struct {
	Status int
	URI    string
}

func (e *HTTPStatusError) Error() string {
	return xerrors.Newf("webdav: unexpected status %d for %s", e.Status, e.URI).Error()
}

// DavPath is an immutable handle on one collection URI.
type DavPath struct {
	uri    string
	client *http.Client
}

// New wraps a URI with the given HTTP client. A nil client uses http.DefaultClient.
func New(uri string, client *http.Client) DavPath {
	if client == nil {
		client = http.DefaultClient
	}
	return DavPath{uri: uri, client: client}
}

func (d DavPath) String() string {
	return d.uri
}

func (d DavPath) child(name string) string {
	if strings.HasSuffix(d.uri, "/") {
		return d.uri + name
	}
	return d.uri + "/" + name
}

// Mkdir issues MKCOL to create dirName as a child collection, returning the
// handle on the newly created collection. The server is expected to answer
// 201 Created; any other status is reported as an HTTPStatusError.
func (d DavPath) Mkdir(ctx context.Context, dirName string) (DavPath, error) {
	newURI := d.child(dirName)

	req, err := http.NewRequestWithContext(ctx, methodMkcol, newURI, nil)
	if err != nil {
		return DavPath{}, xerrors.Wrapf(err, "failed to build MKCOL request for %s", newURI)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return DavPath{}, xerrors.Wrapf(err, "MKCOL request failed for %s", newURI)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return DavPath{}, &HTTPStatusError{Status: resp.StatusCode, URI: newURI}
	}
	return DavPath{uri: newURI, client: d.client}, nil
}

// Upload PUTs body under this collection as fileName. Any 2xx status is
// accepted as success.
func (d DavPath) Upload(ctx context.Context, fileName string, body []byte) error {
	uri := d.child(fileName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uri, bytes.NewReader(body))
	if err != nil {
		return xerrors.Wrapf(err, "failed to build PUT request for %s", uri)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "PUT request failed for %s", uri)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPStatusError{Status: resp.StatusCode, URI: uri}
	}
	return nil
}
