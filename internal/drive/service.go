package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// FolderMimeType is the Drive mime type marking folder nodes
	FolderMimeType = "application/vnd.google-apps.folder"

	fileFields = "id, name, size, mimeType, parents, webViewLink, webContentLink, description, modifiedTime"

	// uploadChunkSize is the resumable upload chunk size. Each chunk is
	// acknowledged by the server before the next is sent.
	uploadChunkSize = 8 * 1024 * 1024

	downloadChunkSize = 1024 * 1024
)

// File is a node in the remote tree
type File struct {
	ID           string
	Name         string
	MimeType     string
	Size         int64
	Parents      []string
	ViewLink     string
	DownloadLink string
	Description  string
	ModifiedTime string
}

// IsFolder reports whether the node is a folder. A node's kind never
// changes after creation.
func (f File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// ListQuery selects children for a listing call. ParentID and NamePart
// combine with logical AND when both are set.
type ListQuery struct {
	ParentID  string
	NamePart  string // substring match on name
	NameExact string // exact name match, used by the manage command
	PageSize  int64
}

// ListPage is one page of listing results
type ListPage struct {
	Files         []File
	NextPageToken string
}

// API is the narrow surface of the Drive service the rest of the package
// uses. Tests substitute a fake.
type API interface {
	Get(ctx context.Context, id string) (File, error)
	List(ctx context.Context, q ListQuery, pageToken string) (ListPage, error)
	CreateFolder(ctx context.Context, name, parentID string) (File, error)
	Copy(ctx context.Context, fileID, parentID string) (File, error)
	Delete(ctx context.Context, id string) error
	AllowLinkAccess(ctx context.Context, id string) error
	Download(ctx context.Context, fileID string, w io.Writer, onChunk func(written int64) error) error
	Upload(ctx context.Context, meta UploadMeta, r io.Reader, size int64, onChunk func(sent int64)) (File, error)
}

// UploadMeta describes the file being created by an upload
type UploadMeta struct {
	Name        string
	MimeType    string
	Description string
	ParentID    string
}

// Service implements API against the real Drive v3 endpoint
type Service struct {
	svc *drivev3.Service
}

// NewService builds a Service from an authorized HTTP client
func NewService(ctx context.Context, client *http.Client) (*Service, error) {
	svc, err := drivev3.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &Service{svc: svc}, nil
}

func fromAPI(f *drivev3.File) File {
	return File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		Parents:      f.Parents,
		ViewLink:     f.WebViewLink,
		DownloadLink: f.WebContentLink,
		Description:  f.Description,
		ModifiedTime: f.ModifiedTime,
	}
}

// Get fetches a single node's metadata
func (s *Service) Get(ctx context.Context, id string) (File, error) {
	f, err := s.svc.Files.Get(id).
		Fields(googleapi.Field(fileFields)).
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return File{}, &RemoteOpError{Op: "get", Err: err}
	}
	return fromAPI(f), nil
}

// List fetches one page of children. Ordering is most-recently-modified
// first, folders before files among equal modification times.
func (s *Service) List(ctx context.Context, q ListQuery, pageToken string) (ListPage, error) {
	var terms []string
	if q.ParentID != "" {
		terms = append(terms, fmt.Sprintf("'%s' in parents", escapeQuery(q.ParentID)))
	}
	if q.NameExact != "" {
		terms = append(terms, fmt.Sprintf("name = '%s'", escapeQuery(q.NameExact)))
	}
	if q.NamePart != "" {
		terms = append(terms, fmt.Sprintf("name contains '%s'", escapeQuery(q.NamePart)))
	}

	call := s.svc.Files.List().
		Spaces("drive").
		Corpora("allDrives").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		OrderBy("modifiedTime desc,folder").
		Fields(googleapi.Field(fmt.Sprintf("nextPageToken, files(%s)", fileFields))).
		Context(ctx)
	if len(terms) > 0 {
		call = call.Q(strings.Join(terms, " and "))
	}
	if q.PageSize > 0 {
		call = call.PageSize(q.PageSize)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return ListPage{}, &RemoteOpError{Op: "list", Err: err}
	}

	page := ListPage{NextPageToken: resp.NextPageToken}
	for _, f := range resp.Files {
		page.Files = append(page.Files, fromAPI(f))
	}
	return page, nil
}

// CreateFolder creates a folder node under parentID (root when empty)
func (s *Service) CreateFolder(ctx context.Context, name, parentID string) (File, error) {
	meta := &drivev3.File{
		Name:     name,
		MimeType: FolderMimeType,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	f, err := s.svc.Files.Create(meta).
		Fields(googleapi.Field(fileFields)).
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return File{}, &RemoteOpError{Op: "mkdir", Err: err}
	}
	return fromAPI(f), nil
}

// Copy performs a remote-native file copy, no byte round trip
func (s *Service) Copy(ctx context.Context, fileID, parentID string) (File, error) {
	meta := &drivev3.File{}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	f, err := s.svc.Files.Copy(fileID, meta).
		Fields(googleapi.Field(fileFields)).
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return File{}, &RemoteOpError{Op: "copy", Err: err}
	}
	return fromAPI(f), nil
}

// Delete permanently deletes a node, skipping the trash
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.svc.Files.Delete(id).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return &RemoteOpError{Op: "rm", Err: err}
	}
	return nil
}

// AllowLinkAccess grants "anyone with the link" read access. Shared-drive
// nodes reject per-file permissions; that failure is tolerated, as are
// nodes that vanished between creation and this call.
func (s *Service) AllowLinkAccess(ctx context.Context, id string) error {
	perm := &drivev3.Permission{Role: "reader", Type: "anyone"}
	_, err := s.svc.Permissions.Create(id, perm).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusForbidden) {
			return nil
		}
		return &RemoteOpError{Op: "permission", Err: err}
	}
	return nil
}

// Download streams the file's content into w, invoking onChunk after each
// chunk so the caller can report progress and observe cancellation.
func (s *Service) Download(ctx context.Context, fileID string, w io.Writer, onChunk func(written int64) error) error {
	resp, err := s.svc.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).Download()
	if err != nil {
		return &RemoteOpError{Op: "download", Err: err}
	}
	defer resp.Body.Close()

	return copyChunks(ctx, w, resp.Body, onChunk)
}

// Upload creates a file with a resumable media upload. onChunk is called
// with the cumulative byte count as the server acknowledges chunks.
func (s *Service) Upload(ctx context.Context, meta UploadMeta, r io.Reader, size int64, onChunk func(sent int64)) (File, error) {
	fileMeta := &drivev3.File{
		Name:        meta.Name,
		MimeType:    meta.MimeType,
		Description: meta.Description,
	}
	if meta.ParentID != "" {
		fileMeta.Parents = []string{meta.ParentID}
	}

	call := s.svc.Files.Create(fileMeta).
		Fields(googleapi.Field(fileFields)).
		SupportsAllDrives(true).
		Media(r, googleapi.ChunkSize(uploadChunkSize), googleapi.ContentType(meta.MimeType))
	if onChunk != nil {
		call = call.ProgressUpdater(func(current, total int64) {
			onChunk(current)
		})
	}

	f, err := call.Context(ctx).Do()
	if err != nil {
		return File{}, err
	}
	return fromAPI(f), nil
}

// copyChunks copies src to dst in fixed chunks, checking ctx and calling
// onChunk with the cumulative count at each chunk boundary
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, onChunk func(written int64) error) error {
	buf := make([]byte, downloadChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			written += int64(n)
			if onChunk != nil {
				if cerr := onChunk(written); cerr != nil {
					return cerr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// escapeQuery escapes a value embedded in a Drive search query
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// MimeTypeOf guesses a file's mime type from its name, falling back to
// text/plain
func MimeTypeOf(name string) string {
	mt := mime.TypeByExtension(filepath.Ext(name))
	if mt == "" {
		return "text/plain"
	}
	return mt
}
