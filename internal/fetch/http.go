// Package fetch downloads plain HTTP(S) sources into the staging
// directory with progress reporting and cooperative cancellation.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"drivebot/internal/progress"
	"drivebot/pkg/utils"
)

const chunkSize = 512 * 1024

// Fetcher downloads URLs into a staging directory
type Fetcher struct {
	http *http.Client

	// max caps the download size in bytes, 0 meaning unlimited
	max int64
}

// NewFetcher creates a Fetcher capped at max bytes per download (0 for
// no cap). No overall timeout is set: transfers can legitimately run
// long and are bounded by their context instead.
func NewFetcher(max int64) *Fetcher {
	return &Fetcher{
		http: &http.Client{Timeout: 0},
		max:  max,
	}
}

// Download streams rawURL into stagingDir and returns the local path.
// The file name comes from Content-Disposition when present, else from
// the URL path. On cancellation the partial file is removed.
func (f *Fetcher) Download(ctx context.Context, rawURL, stagingDir string, onProgress progress.Func) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid download URL: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download request failed: %s", resp.Status)
	}
	if f.max > 0 && resp.ContentLength > f.max {
		return "", fmt.Errorf("download size %s exceeds the %s limit",
			utils.FormatBytes(resp.ContentLength), utils.FormatBytes(f.max))
	}

	name := fileName(resp, rawURL)
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	localPath := filepath.Join(stagingDir, name)

	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}

	tracker := progress.NewTracker("Download", name, resp.ContentLength)
	throttle := progress.NewThrottle(0)

	buf := make([]byte, chunkSize)
	var written int64
	var copyErr error
	for {
		if err := ctx.Err(); err != nil {
			copyErr = context.Canceled
			break
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				copyErr = werr
				break
			}
			written += int64(n)
			// servers without a Content-Length are caught here instead
			if f.max > 0 && written > f.max {
				copyErr = fmt.Errorf("download exceeds the %s limit", utils.FormatBytes(f.max))
				break
			}
			snap := tracker.Snapshot(written)
			if throttle.Allow(snap) {
				onProgress.Report(snap)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			copyErr = rerr
			break
		}
	}
	closeErr := out.Close()

	if copyErr != nil {
		os.Remove(localPath)
		if errors.Is(copyErr, context.Canceled) {
			return "", context.Canceled
		}
		return "", fmt.Errorf("download of %s failed: %w", name, copyErr)
	}
	if closeErr != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("download of %s failed: %w", name, closeErr)
	}

	onProgress.Report(tracker.Snapshot(written))
	return localPath, nil
}

// fileName picks a staging file name from the response headers, falling
// back to the URL path, falling back to a timestamped name
func fileName(resp *http.Response, rawURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return filepath.Base(name)
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
			return name
		}
	}
	return "download-" + time.Now().Format("20060102-150405")
}
