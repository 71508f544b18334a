package mount

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/oblivioncth/clifp/internal/kernelerr"
)

// RouterMounter issues an HTTP GET against a launcher-embedded mount
// endpoint - the transport for DaemonRouter installs, where the
// launcher binary itself serves the mount handler rather than a
// separate proxy process.
type RouterMounter struct {
	client  *http.Client
	baseURL string
	cancel  context.CancelFunc
}

// NewRouterMounter constructs a mounter GETing
// baseURL+"?gameDataId=...&path=..." with the given idle timeout.
func NewRouterMounter(baseURL string, idleTimeout time.Duration) *RouterMounter {
	return &RouterMounter{
		client: &http.Client{Timeout: idleTimeout},
		baseURL: baseURL,
	}
}

func (m *RouterMounter) Mount(ctx context.Context, gameDataID, pathOnDisk string) kernelerr.Error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	defer cancel()

	q := url.Values{}
	q.Set("gameDataId", gameDataID)
	q.Set("path", pathOnDisk)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return kernelerr.New(errRouterFailed, kernelerr.Error, "Failed to construct router mount request").WithSpecific(err.Error())
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return kernelerr.New(errRouterFailed, kernelerr.Error, "Launcher router is unreachable").WithSpecific(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return kernelerr.New(errRouterFailed, kernelerr.Error, "Launcher router rejected the mount request").
			WithSpecific(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	return kernelerr.Nil
}

func (m *RouterMounter) Abort() {
	if m.cancel != nil {
		m.cancel()
	}
}
