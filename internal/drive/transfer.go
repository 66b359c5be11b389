package drive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"drivebot/internal/progress"
)

const uploadDescription = "Uploaded from Telegram using drivebot."

// UploadResult is what a finished upload hands back to the caller
type UploadResult struct {
	ID   string
	Name string
	Size int64
	Link string // durable webContentLink
}

// Transferer moves bytes between the local filesystem and the remote tree
type Transferer struct {
	api API
}

// NewTransferer creates a Transferer over api
func NewTransferer(api API) *Transferer {
	return &Transferer{api: api}
}

// Upload streams the local file at path into the folder parentID and
// grants "anyone with the link" read access. Progress snapshots go to
// onProgress as chunks are acknowledged; cancellation comes from ctx.
func (t *Transferer) Upload(ctx context.Context, path, parentID string, onProgress progress.Func) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &TransferError{Op: "upload", Name: path, Err: err}
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, &TransferError{Op: "upload", Name: path, Err: err}
	}
	name := filepath.Base(path)

	tracker := progress.NewTracker("Upload", name, stat.Size())
	throttle := progress.NewThrottle(0)

	meta := UploadMeta{
		Name:        name,
		MimeType:    MimeTypeOf(name),
		Description: uploadDescription,
		ParentID:    parentID,
	}
	uploaded, err := t.api.Upload(ctx, meta, f, stat.Size(), func(sent int64) {
		snap := tracker.Snapshot(sent)
		if throttle.Allow(snap) {
			onProgress.Report(snap)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Canceled
		}
		return nil, &TransferError{Op: "upload", Name: name, Err: err}
	}

	if err := t.api.AllowLinkAccess(ctx, uploaded.ID); err != nil {
		return nil, err
	}

	size := uploaded.Size
	if size == 0 {
		size = stat.Size()
	}
	return &UploadResult{
		ID:   uploaded.ID,
		Name: uploaded.Name,
		Size: size,
		Link: uploaded.DownloadLink,
	}, nil
}

// Download fetches the remote file with id fileID into stagingDir and
// returns the local path. Folder nodes are rejected. On cancellation the
// partially written file is removed before the error is returned.
func (t *Transferer) Download(ctx context.Context, fileID, stagingDir string, onProgress progress.Func) (string, error) {
	info, err := t.api.Get(ctx, fileID)
	if err != nil {
		return "", err
	}
	if info.IsFolder() {
		return "", ErrUnsupportedSourceKind
	}

	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	localPath := filepath.Join(stagingDir, info.Name)

	out, err := os.Create(localPath)
	if err != nil {
		return "", &TransferError{Op: "download", Name: info.Name, Err: err}
	}

	tracker := progress.NewTracker("Download", info.Name, info.Size)
	throttle := progress.NewThrottle(0)

	err = t.api.Download(ctx, fileID, out, func(written int64) error {
		snap := tracker.Snapshot(written)
		if throttle.Allow(snap) {
			onProgress.Report(snap)
		}
		return ctx.Err()
	})
	closeErr := out.Close()

	if err != nil {
		os.Remove(localPath)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", context.Canceled
		}
		return "", &TransferError{Op: "download", Name: info.Name, Err: err}
	}
	if closeErr != nil {
		os.Remove(localPath)
		return "", &TransferError{Op: "download", Name: info.Name, Err: closeErr}
	}

	onProgress.Report(tracker.Snapshot(info.Size))
	return localPath, nil
}
