package drive

import (
	"context"
	"fmt"
)

// MaxPageSize is the hard cap on listing page sizes
const MaxPageSize = 1000

// DefaultPageSize is used when a listing command gives no -l flag
const DefaultPageSize = 25

// Navigator resolves identifiers and walks the remote tree
type Navigator struct {
	api API

	// defaultParent is the statically configured upload folder, already
	// normalized to an id. May be empty, meaning the tree root.
	defaultParent string
}

// NewNavigator creates a Navigator over api
func NewNavigator(api API, defaultParent string) *Navigator {
	return &Navigator{api: api, defaultParent: defaultParent}
}

// DefaultParent returns the configured fallback folder id
func (n *Navigator) DefaultParent() string {
	return n.defaultParent
}

// Stat fetches a node's metadata by id
func (n *Navigator) Stat(ctx context.Context, id string) (File, error) {
	return n.api.Get(ctx, id)
}

// ListChildren lists nodes matching q. Pagination happens internally: the
// caller sees a fully materialized slice, at most q.PageSize entries.
func (n *Navigator) ListChildren(ctx context.Context, q ListQuery) ([]File, error) {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		return nil, fmt.Errorf("page size %d exceeds the %d limit", q.PageSize, MaxPageSize)
	}

	var result []File
	pageToken := ""
	for {
		page, err := n.api.List(ctx, q, pageToken)
		if err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			if int64(len(result)) >= q.PageSize {
				return result, nil
			}
			result = append(result, f)
		}
		if page.NextPageToken == "" {
			return result, nil
		}
		pageToken = page.NextPageToken
	}
}

// FindByName returns the first node with exactly the given name, or
// ok=false when none exists
func (n *Navigator) FindByName(ctx context.Context, name string) (File, bool, error) {
	page, err := n.api.List(ctx, ListQuery{NameExact: name, PageSize: 1}, "")
	if err != nil {
		return File{}, false, err
	}
	if len(page.Files) == 0 {
		return File{}, false, nil
	}
	return page.Files[0], true, nil
}

// CreateFolder creates a folder under parentID and makes it readable by
// anyone with the link. An empty parentID falls back to the configured
// default folder, else the tree root.
func (n *Navigator) CreateFolder(ctx context.Context, name, parentID string) (File, error) {
	if parentID == "" {
		parentID = n.defaultParent
	}
	folder, err := n.api.CreateFolder(ctx, name, parentID)
	if err != nil {
		return File{}, err
	}
	if err := n.api.AllowLinkAccess(ctx, folder.ID); err != nil {
		return File{}, err
	}
	return folder, nil
}

// Copy duplicates a single file into parentID and makes the copy
// readable by anyone with the link. An empty parentID falls back to the
// configured default folder.
func (n *Navigator) Copy(ctx context.Context, fileID, parentID string) (File, error) {
	if parentID == "" {
		parentID = n.defaultParent
	}
	copied, err := n.api.Copy(ctx, fileID, parentID)
	if err != nil {
		return File{}, err
	}
	if err := n.api.AllowLinkAccess(ctx, copied.ID); err != nil {
		return File{}, err
	}
	return copied, nil
}

// Delete removes a node permanently
func (n *Navigator) Delete(ctx context.Context, id string) error {
	return n.api.Delete(ctx, id)
}

// SubtreeSize sums the sizes of all files under folderID, recursively.
// Folders contribute nothing themselves; children with no readable size
// count as zero rather than failing the walk.
func (n *Navigator) SubtreeSize(ctx context.Context, folderID string) (int64, error) {
	children, err := n.listAll(ctx, folderID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, child := range children {
		if child.IsFolder() {
			sub, err := n.SubtreeSize(ctx, child.ID)
			if err != nil {
				return 0, err
			}
			total += sub
		} else if child.Size > 0 {
			total += child.Size
		}
	}
	return total, nil
}

// listAll fetches every child of folderID across all pages
func (n *Navigator) listAll(ctx context.Context, folderID string) ([]File, error) {
	var all []File
	pageToken := ""
	for {
		page, err := n.api.List(ctx, ListQuery{ParentID: folderID, PageSize: 100}, pageToken)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Files...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}
