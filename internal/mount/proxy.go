package mount

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oblivioncth/clifp/internal/kernelerr"
)

// ProxyMounter issues an HTTP POST to a local mount proxy - the
// transport used when the install's recognized daemon is DaemonProxy.
// Grounded on the internal/http client-construction style
// (context-aware requests, an operation-wide idle timeout per spec.md
// §5) though the emitting process itself is server-side; this is CLIFp acting
// as the HTTP client against a daemon it does not own.
type ProxyMounter struct {
	client  *http.Client
	endpoint string

	cancel context.CancelFunc
}

// NewProxyMounter constructs a mounter POSTing to endpoint (e.g.
// "http://127.0.0.1:22500/mount") with the given idle timeout.
func NewProxyMounter(endpoint string, idleTimeout time.Duration) *ProxyMounter {
	return &ProxyMounter{
		client:  &http.Client{Timeout: idleTimeout},
		endpoint: endpoint,
	}
}

type proxyMountRequest struct {
	GameDataID string `json:"gameDataId"`
	Path    string `json:"path"`
}

func (m *ProxyMounter) Mount(ctx context.Context, gameDataID, pathOnDisk string) kernelerr.Error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	defer cancel()

	body, err := json.Marshal(proxyMountRequest{GameDataID: gameDataID, Path: pathOnDisk})
	if err != nil {
		return kernelerr.New(errProxyUnreachable, kernelerr.Error, "Failed to build mount proxy request").WithSpecific(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return kernelerr.New(errProxyUnreachable, kernelerr.Error, "Failed to construct mount proxy request").WithSpecific(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return kernelerr.New(errProxyUnreachable, kernelerr.Error, "Mount proxy is unreachable").WithSpecific(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return kernelerr.New(errProxyUnreachable, kernelerr.Error, "Mount proxy rejected the request").
			WithSpecific(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	return kernelerr.Nil
}

func (m *ProxyMounter) Abort() {
	if m.cancel != nil {
		m.cancel()
	}
}
