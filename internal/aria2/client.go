// Package aria2 is a small JSON-RPC client for the aria2 download manager,
// which handles magnet links and torrents on the bot's behalf.
package aria2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"drivebot/internal/config"
	"drivebot/internal/progress"
)

// pollInterval is how often an in-flight download is polled for status
const pollInterval = 3 * time.Second

// Client talks to one aria2 RPC endpoint
type Client struct {
	url    string
	secret string
	http   *http.Client
}

// NewClient creates a client for the configured endpoint
func NewClient(cfg config.Aria2Config) *Client {
	return &Client{
		url:    cfg.RPCURL,
		secret: cfg.Secret,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	Version string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("aria2 rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// DownloadStatus is the subset of aria2.tellStatus the bot cares about
type DownloadStatus struct {
	GID             string   `json:"gid"`
	Status          string   `json:"status"` // active, waiting, paused, error, complete, removed
	TotalLength     string   `json:"totalLength"`
	CompletedLength string   `json:"completedLength"`
	ErrorMessage    string   `json:"errorMessage"`
	FollowedBy      []string `json:"followedBy"`
	Files           []struct {
		Path string `json:"path"`
	} `json:"files"`
	Bittorrent struct {
		Info struct {
			Name string `json:"name"`
		} `json:"info"`
	} `json:"bittorrent"`
}

// Name returns the human name of the download
func (s *DownloadStatus) Name() string {
	if s.Bittorrent.Info.Name != "" {
		return s.Bittorrent.Info.Name
	}
	if len(s.Files) > 0 {
		return filepath.Base(s.Files[0].Path)
	}
	return s.GID
}

// Total returns the total length in bytes
func (s *DownloadStatus) Total() int64 {
	n, _ := strconv.ParseInt(s.TotalLength, 10, 64)
	return n
}

// Completed returns the completed length in bytes
func (s *DownloadStatus) Completed() int64 {
	n, _ := strconv.ParseInt(s.CompletedLength, 10, 64)
	return n
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	if c.secret != "" {
		params = append([]any{"token:" + c.secret}, params...)
	}
	body, err := json.Marshal(rpcRequest{
		Version: "2.0",
		ID:      "drivebot",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("aria2 rpc call failed: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to decode rpc result: %w", err)
		}
	}
	return nil
}

// AddURI queues a URI (http(s) or magnet) for download into dir and
// returns the download gid
func (c *Client) AddURI(ctx context.Context, uri, dir string) (string, error) {
	var gid string
	opts := map[string]string{"dir": dir}
	if err := c.call(ctx, "aria2.addUri", []any{[]string{uri}, opts}, &gid); err != nil {
		return "", err
	}
	return gid, nil
}

// TellStatus fetches the status of a download
func (c *Client) TellStatus(ctx context.Context, gid string) (*DownloadStatus, error) {
	var status DownloadStatus
	if err := c.call(ctx, "aria2.tellStatus", []any{gid}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Remove force-removes a download
func (c *Client) Remove(ctx context.Context, gid string) error {
	var removed string
	return c.call(ctx, "aria2.forceRemove", []any{gid}, &removed)
}

// PurgeAll force-removes every active download and purges results.
// Backs the abort command.
func (c *Client) PurgeAll(ctx context.Context) error {
	var active []DownloadStatus
	if err := c.call(ctx, "aria2.tellActive", []any{}, &active); err != nil {
		return err
	}
	for _, st := range active {
		if err := c.Remove(ctx, st.GID); err != nil {
			return err
		}
	}
	var ok string
	return c.call(ctx, "aria2.purgeDownloadResult", []any{}, &ok)
}

// WaitDownload polls gid until the download completes, reporting progress
// snapshots along the way. Magnet downloads first fetch metadata and then
// spawn the real download; the spawned gid is followed automatically.
// It returns the final status, whose Files carry the local paths.
func (c *Client) WaitDownload(ctx context.Context, gid string, onProgress progress.Func) (*DownloadStatus, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var tracker *progress.Tracker
	throttle := progress.NewThrottle(0)

	for {
		status, err := c.TellStatus(ctx, gid)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case "complete":
			if len(status.FollowedBy) > 0 {
				// metadata download finished, follow the real one
				gid = status.FollowedBy[0]
				tracker = nil
				continue
			}
			return status, nil
		case "error":
			return nil, fmt.Errorf("aria2 download failed: %s", status.ErrorMessage)
		case "removed":
			return nil, context.Canceled
		}

		if total := status.Total(); total > 0 {
			if tracker == nil {
				tracker = progress.NewTracker("Download", status.Name(), total)
			}
			snap := tracker.Snapshot(status.Completed())
			if throttle.Allow(snap) {
				onProgress.Report(snap)
			}
		}

		select {
		case <-ctx.Done():
			// best effort: stop the remote job before giving up
			_ = c.Remove(context.Background(), gid)
			return nil, context.Canceled
		case <-ticker.C:
		}
	}
}
