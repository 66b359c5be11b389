package drive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"drivebot/internal/progress"
)

// copyPause is the pause between remote-native file copies, respecting
// Drive's per-user rate limit.
const copyPause = 500 * time.Millisecond

// Syncer mirrors directory trees into the remote tree
type Syncer struct {
	nav *Navigator
	tr  *Transferer

	// pause between remote copies, swappable in tests
	pause time.Duration
}

// NewSyncer creates a Syncer using nav for folder work and tr for uploads
func NewSyncer(nav *Navigator, tr *Transferer) *Syncer {
	return &Syncer{nav: nav, tr: tr, pause: copyPause}
}

// UploadTree mirrors the local directory at localRoot into the remote
// folder parentID, depth first. The parent id is threaded through the
// recursion explicitly; no shared state is involved. An empty directory
// produces no remote nodes and returns parentID unchanged.
//
// A failed child is recorded and the walk continues with its siblings;
// the collected failures come back as one joined error. Only cancellation
// aborts the walk, and it is reported once.
func (s *Syncer) UploadTree(ctx context.Context, localRoot, parentID string, onProgress progress.Func) (string, error) {
	entries, err := os.ReadDir(localRoot)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", localRoot, err)
	}

	var errs []error
	for _, entry := range entries {
		if cerr := ctx.Err(); cerr != nil {
			return "", context.Canceled
		}

		childPath := filepath.Join(localRoot, entry.Name())
		if entry.IsDir() {
			folder, err := s.nav.CreateFolder(ctx, entry.Name(), parentID)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
				continue
			}
			if _, err := s.UploadTree(ctx, childPath, folder.ID, onProgress); err != nil {
				if errors.Is(err, context.Canceled) {
					return "", context.Canceled
				}
				errs = append(errs, err)
			}
		} else {
			if _, err := s.tr.Upload(ctx, childPath, parentID, onProgress); err != nil {
				if errors.Is(err, context.Canceled) {
					return "", context.Canceled
				}
				errs = append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
			}
		}
	}
	return parentID, errors.Join(errs...)
}

// CopyTree mirrors the remote folder srcFolderID into parentID using
// remote-native copies, pausing briefly between file copies. Same failure
// policy as UploadTree: continue past failed children, abort only on
// cancellation.
func (s *Syncer) CopyTree(ctx context.Context, srcFolderID, parentID string) (string, error) {
	children, err := s.nav.listAll(ctx, srcFolderID)
	if err != nil {
		return "", err
	}

	var errs []error
	for _, child := range children {
		if cerr := ctx.Err(); cerr != nil {
			return "", context.Canceled
		}

		if child.IsFolder() {
			folder, err := s.nav.CreateFolder(ctx, child.Name, parentID)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", child.Name, err))
				continue
			}
			if _, err := s.CopyTree(ctx, child.ID, folder.ID); err != nil {
				if errors.Is(err, context.Canceled) {
					return "", context.Canceled
				}
				errs = append(errs, err)
			}
		} else {
			if _, err := s.nav.api.Copy(ctx, child.ID, parentID); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", child.Name, err))
				continue
			}
			select {
			case <-time.After(s.pause):
			case <-ctx.Done():
				return "", context.Canceled
			}
		}
	}
	return parentID, errors.Join(errs...)
}
