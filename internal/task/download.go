package task

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernelerr"
)

const (
	errDownloadIncomplete    uint32 = kernelerr.TaskBlock + 1
	errDownloadChecksumMismatch uint32 = kernelerr.TaskBlock + 2
)

// TDownload downloads a file from a URL to a path and verifies its
// sha256 against an expected value, per spec.md §4.2. Progress streams
// via ProcedureStart/Progress/Scale/Stop exactly as pkg/docker's
// download-adjacent long operations (e.g. docker image pulls) surface
// progress through their own status channel.
type TDownload struct {
	director.Directorate

	URL     string
	DestPath   string
	ExpectedSHA string

	client *http.Client
	cancel context.CancelFunc
}

// NewTDownload constructs a download task. client may be nil to use
// http.DefaultClient.
func NewTDownload(d director.Directorate, url, destPath, expectedSHA string, client *http.Client) *TDownload {
	if client == nil {
		client = http.DefaultClient
	}
	return &TDownload{Directorate: d, URL: url, DestPath: destPath, ExpectedSHA: expectedSHA, client: client}
}

func (t *TDownload) Stage() Stage { return StagePrimary }
func (t *TDownload) Name() string { return "TDownload" }

func (t *TDownload) Perform(ctx context.Context) kernelerr.Error {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	defer cancel()

	t.PostProcedureStart(fmt.Sprintf("Downloading %s", filepath.Base(t.DestPath)))
	defer t.PostProcedureStop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return kernelerr.New(errDownloadIncomplete, kernelerr.Error, "Failed to construct download request").WithSpecific(err.Error())
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return kernelerr.New(errDownloadIncomplete, kernelerr.Error, "Download request failed").WithSpecific(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return kernelerr.New(errDownloadIncomplete, kernelerr.Error, "Download server returned an error").
			WithSpecific(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	if err := os.MkdirAll(filepath.Dir(t.DestPath), 0o755); err != nil {
		return kernelerr.New(errDownloadIncomplete, kernelerr.Error, "Failed to create destination directory").WithSpecific(err.Error())
	}

	out, err := os.Create(t.DestPath)
	if err != nil {
		return kernelerr.New(errDownloadIncomplete, kernelerr.Error, "Failed to create destination file").WithSpecific(err.Error())
	}
	defer out.Close()

	if resp.ContentLength > 0 {
		t.PostProcedureScale(resp.ContentLength)
	}

	hasher := sha256.New()
	progress := &progressWriter{onWrite: func(n int64) { t.PostProcedureProgress(n) }}
	written, err := io.Copy(io.MultiWriter(out, hasher, progress), resp.Body)
	if err != nil {
		return kernelerr.New(errDownloadIncomplete, kernelerr.Error, "Download stream ended early").WithSpecific(err.Error())
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return kernelerr.New(errDownloadIncomplete, kernelerr.Error, "Downloaded byte count did not match the server's advertised length")
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	if t.ExpectedSHA != "" && sum != t.ExpectedSHA {
		return kernelerr.New(errDownloadChecksumMismatch, kernelerr.Warning, "Downloaded pack failed checksum verification").
			WithSpecific(fmt.Sprintf("expected %s, got %s", t.ExpectedSHA, sum))
	}

	return kernelerr.Nil
}

func (t *TDownload) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

// progressWriter reports cumulative bytes written via onWrite,
// satisfying io.Writer so it can ride along in an io.MultiWriter
// alongside the destination file and the hashing writer.
type progressWriter struct {
	total  int64
	onWrite func(total int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.total += int64(len(b))
	if p.onWrite != nil {
		p.onWrite(p.total)
	}
	return len(b), nil
}
