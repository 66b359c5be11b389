package drive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// fakeAPI is an in-memory API implementation for tests. Listings come
// back most recently modified first, like the real service, and pages
// are capped at pageLimit entries to exercise pagination.
type fakeAPI struct {
	mu        sync.Mutex
	nextID    int
	nodes     map[string]File
	contents  map[string][]byte
	parents   map[string]string // node id -> parent id
	shared    map[string]bool   // ids granted link access
	failNames map[string]bool   // uploads/copies that must fail

	pageLimit int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nodes:     make(map[string]File),
		contents:  make(map[string][]byte),
		parents:   make(map[string]string),
		shared:    make(map[string]bool),
		failNames: make(map[string]bool),
		pageLimit: 100,
	}
}

func (f *fakeAPI) addFolder(name, parentID string) File {
	return f.add(File{Name: name, MimeType: FolderMimeType}, parentID, nil)
}

func (f *fakeAPI) addFile(name, parentID string, content []byte) File {
	return f.add(File{Name: name, MimeType: "text/plain", Size: int64(len(content))}, parentID, content)
}

func (f *fakeAPI) add(node File, parentID string, content []byte) File {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	node.ID = fmt.Sprintf("id-%03d", f.nextID)
	// later nodes sort as more recent
	node.ModifiedTime = fmt.Sprintf("2026-01-01T00:00:%02dZ", f.nextID)
	node.ViewLink = "https://drive.google.com/file/d/" + node.ID + "/view"
	f.nodes[node.ID] = node
	f.parents[node.ID] = parentID
	if content != nil {
		f.contents[node.ID] = content
	}
	return node
}

func (f *fakeAPI) Get(_ context.Context, id string) (File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	node, ok := f.nodes[id]
	if !ok {
		return File{}, &RemoteOpError{Op: "get", Err: fmt.Errorf("no node %s", id)}
	}
	return node, nil
}

func (f *fakeAPI) List(_ context.Context, q ListQuery, pageToken string) (ListPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []File
	for id, node := range f.nodes {
		if q.ParentID != "" && f.parents[id] != q.ParentID {
			continue
		}
		if q.NameExact != "" && node.Name != q.NameExact {
			continue
		}
		if q.NamePart != "" && !strings.Contains(node.Name, q.NamePart) {
			continue
		}
		matched = append(matched, node)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ModifiedTime > matched[j].ModifiedTime
	})

	offset := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "%d", &offset)
	}
	if offset >= len(matched) {
		return ListPage{}, nil
	}
	end := offset + f.pageLimit
	if end > len(matched) {
		end = len(matched)
	}
	page := ListPage{Files: matched[offset:end]}
	if end < len(matched) {
		page.NextPageToken = fmt.Sprintf("%d", end)
	}
	return page, nil
}

func (f *fakeAPI) CreateFolder(_ context.Context, name, parentID string) (File, error) {
	if f.failNames[name] {
		return File{}, &RemoteOpError{Op: "mkdir", Err: fmt.Errorf("refused %s", name)}
	}
	return f.addFolder(name, parentID), nil
}

func (f *fakeAPI) Copy(_ context.Context, fileID, parentID string) (File, error) {
	src, err := f.Get(context.Background(), fileID)
	if err != nil {
		return File{}, err
	}
	if f.failNames[src.Name] {
		return File{}, &RemoteOpError{Op: "copy", Err: fmt.Errorf("refused %s", src.Name)}
	}
	return f.add(File{Name: src.Name, MimeType: src.MimeType, Size: src.Size}, parentID, f.contents[fileID]), nil
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.nodes[id]; !ok {
		return &RemoteOpError{Op: "rm", Err: fmt.Errorf("no node %s", id)}
	}
	delete(f.nodes, id)
	delete(f.parents, id)
	return nil
}

func (f *fakeAPI) AllowLinkAccess(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shared[id] = true
	return nil
}

// Download writes the stored content in 4-byte chunks so cancellation
// mid-transfer is observable
func (f *fakeAPI) Download(ctx context.Context, fileID string, w io.Writer, onChunk func(written int64) error) error {
	f.mu.Lock()
	content, ok := f.contents[fileID]
	f.mu.Unlock()
	if !ok {
		return &RemoteOpError{Op: "download", Err: fmt.Errorf("no content for %s", fileID)}
	}

	var written int64
	for len(content) > 0 {
		n := 4
		if n > len(content) {
			n = len(content)
		}
		if _, err := w.Write(content[:n]); err != nil {
			return err
		}
		content = content[n:]
		written += int64(n)
		if err := onChunk(written); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAPI) Upload(ctx context.Context, meta UploadMeta, r io.Reader, size int64, onChunk func(sent int64)) (File, error) {
	if f.failNames[meta.Name] {
		return File{}, &RemoteOpError{Op: "upload", Err: fmt.Errorf("refused %s", meta.Name)}
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return File{}, err
	}
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	onChunk(int64(len(content)))
	node := f.add(File{
		Name:     meta.Name,
		MimeType: meta.MimeType,
		Size:     int64(len(content)),
	}, meta.ParentID, content)
	return node, nil
}

// childNames lists node names under parentID, sorted
func (f *fakeAPI) childNames(parentID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for id, p := range f.parents {
		if p == parentID {
			names = append(names, f.nodes[id].Name)
		}
	}
	sort.Strings(names)
	return names
}
