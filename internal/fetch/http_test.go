package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"drivebot/internal/progress"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		w.Write([]byte("pdf bytes"))
	}))
	defer srv.Close()

	staging := t.TempDir()
	var last progress.Snapshot
	local, err := NewFetcher(0).Download(context.Background(), srv.URL+"/dl", staging, func(s progress.Snapshot) {
		last = s
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(local) != "report.pdf" {
		t.Errorf("file named %q, want report.pdf from Content-Disposition", filepath.Base(local))
	}
	got, err := os.ReadFile(local)
	if err != nil || string(got) != "pdf bytes" {
		t.Errorf("content = %q/%v", got, err)
	}
	if last.Transferred != int64(len("pdf bytes")) {
		t.Errorf("final snapshot transferred = %d", last.Transferred)
	}
}

func TestDownloadNameFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	local, err := NewFetcher(0).Download(context.Background(), srv.URL+"/files/archive.tar.gz", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(local) != "archive.tar.gz" {
		t.Errorf("file named %q, want archive.tar.gz from the URL path", filepath.Base(local))
	}
}

func TestDownloadNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewFetcher(0).Download(context.Background(), srv.URL, t.TempDir(), nil)
	if err == nil {
		t.Fatal("Download accepted a 404 response")
	}
}

func TestDownloadSizeCap(t *testing.T) {
	t.Run("rejected from Content-Length", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "4096")
			w.Write(make([]byte, 4096))
		}))
		defer srv.Close()

		staging := t.TempDir()
		_, err := NewFetcher(1024).Download(context.Background(), srv.URL+"/big.bin", staging, nil)
		if err == nil || !strings.Contains(err.Error(), "limit") {
			t.Fatalf("Download = %v, want a size limit error", err)
		}
		entries, _ := os.ReadDir(staging)
		if len(entries) != 0 {
			t.Errorf("staging dir holds %d entries after a rejected download", len(entries))
		}
	})

	t.Run("rejected while streaming", func(t *testing.T) {
		// no Content-Length, the body must be measured as it arrives
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(make([]byte, 2048))
			w.(http.Flusher).Flush()
			w.Write(make([]byte, 2048))
		}))
		defer srv.Close()

		staging := t.TempDir()
		_, err := NewFetcher(1024).Download(context.Background(), srv.URL+"/stream.bin", staging, nil)
		if err == nil || !strings.Contains(err.Error(), "limit") {
			t.Fatalf("Download = %v, want a size limit error", err)
		}
		entries, _ := os.ReadDir(staging)
		if len(entries) != 0 {
			t.Errorf("staging dir holds %d entries after a rejected download", len(entries))
		}
	})

	t.Run("zero means unlimited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(make([]byte, 4096))
		}))
		defer srv.Close()

		if _, err := NewFetcher(0).Download(context.Background(), srv.URL+"/big.bin", t.TempDir(), nil); err != nil {
			t.Fatalf("Download with no cap: %v", err)
		}
	})
}

// Cancellation mid-download must remove the partial file
func TestDownloadCancelLeavesNoFile(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		w.Write(make([]byte, 1024))
		w.(http.Flusher).Flush()
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	ctx, cancel := context.WithCancel(context.Background())
	staging := t.TempDir()

	_, err := NewFetcher(0).Download(ctx, srv.URL+"/big.bin", staging, func(s progress.Snapshot) {
		cancel() // first chunk arrived, cancel now
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Download after cancel = %v, want context.Canceled", err)
	}

	entries, rderr := os.ReadDir(staging)
	if rderr != nil {
		t.Fatalf("reading staging dir: %v", rderr)
	}
	if len(entries) != 0 {
		t.Errorf("staging dir still holds %d entries after cancellation", len(entries))
	}
}
