package pkgfetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/open-edge-platform/postgis-composer/internal/recipe"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
)

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func quiet(t *testing.T) {
	t.Helper()
	prevWriter := progressWriter
	prevReport := logger.ReportPath
	progressWriter = io.Discard
	logger.ReportPath = t.TempDir()
	t.Cleanup(func() {
		progressWriter = prevWriter
		logger.ReportPath = prevReport
	})
}

func TestRequestsFor(t *testing.T) {
	reqs, err := RequestsFor(recipe.Postgis(), []string{"3.1.2", "2.5.3"})
	if err != nil {
		t.Fatalf("RequestsFor failed: %v", err)
	}
	if len(reqs) != 2 || reqs[1].FileName != "postgis-2.5.3.tar.gz" {
		t.Errorf("unexpected requests %+v", reqs)
	}
	if reqs[0].SHA256 != "2cdd3760176926704b4eb25ff3357543c9637dee74425a49082906857c7e0732" {
		t.Errorf("unexpected digest %s", reqs[0].SHA256)
	}

	if _, err := RequestsFor(recipe.Postgis(), []string{"1.0"}); !errors.Is(err, recipe.ErrUnknownVersion) {
		t.Errorf("expected ErrUnknownVersion, got %v", err)
	}
}

func TestFetchArchives(t *testing.T) {
	quiet(t)

	files := map[string][]byte{
		"/a.tar.gz": []byte("archive a"),
		"/b.tar.gz": []byte("archive b"),
	}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	reqs := []Request{
		{URL: srv.URL + "/a.tar.gz", FileName: "a.tar.gz", SHA256: digest(files["/a.tar.gz"])},
		{URL: srv.URL + "/b.tar.gz", FileName: "b.tar.gz", SHA256: digest(files["/b.tar.gz"])},
	}
	dest := t.TempDir()

	paths, err := FetchArchives(context.Background(), reqs, dest, 2)
	if err != nil {
		t.Fatalf("FetchArchives failed: %v", err)
	}
	if len(paths) != 2 || paths[0] != filepath.Join(dest, "a.tar.gz") {
		t.Errorf("unexpected paths %v", paths)
	}
	data, _ := os.ReadFile(paths[1])
	if string(data) != "archive b" {
		t.Errorf("unexpected content %q", data)
	}

	before := hits.Load()
	if _, err := FetchArchives(context.Background(), reqs, dest, 2); err != nil {
		t.Fatalf("cached FetchArchives failed: %v", err)
	}
	if hits.Load() != before {
		t.Error("cached archives were downloaded again")
	}
}

func TestFetchArchivesChecksumMismatch(t *testing.T) {
	quiet(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered"))
	}))
	defer srv.Close()

	dest := t.TempDir()
	reqs := []Request{{URL: srv.URL + "/x.tar.gz", FileName: "x.tar.gz", SHA256: digest([]byte("original"))}}

	_, err := FetchArchives(context.Background(), reqs, dest, 1)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
	entries, _ := os.ReadDir(dest)
	if len(entries) != 0 {
		t.Errorf("expected no files after mismatch, found %d", len(entries))
	}
}

func TestFetchArchivesBadStatus(t *testing.T) {
	quiet(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	reqs := []Request{{URL: srv.URL + "/missing.tar.gz", FileName: "missing.tar.gz", SHA256: digest(nil)}}
	if _, err := FetchArchives(context.Background(), reqs, t.TempDir(), 1); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestVerifyChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := VerifyChecksum(path, digest([]byte("hello"))); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := VerifyChecksum(path, digest([]byte("bye"))); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected mismatch, got %v", err)
	}
}
