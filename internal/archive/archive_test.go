package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

type entry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func tarBytes(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.body)), Typeflag: e.typeflag, Linkname: e.linkname}
		switch e.typeflag {
		case tar.TypeDir:
			hdr.Mode = 0755
			hdr.Size = 0
		case tar.TypeSymlink:
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if hdr.Size > 0 {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeArchive(t *testing.T, name string, entries []entry) string {
	t.Helper()
	raw := tarBytes(t, entries)
	var buf bytes.Buffer
	switch filepath.Ext(name) {
	case ".gz", ".tgz":
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	case ".xz":
		w, err := xz.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(raw); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	default:
		buf.Write(raw)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

var sourceTree = []entry{
	{name: "postgis-3.1.2/", typeflag: tar.TypeDir},
	{name: "postgis-3.1.2/configure", body: "pj_get_release\n", typeflag: tar.TypeReg},
	{name: "postgis-3.1.2/doc/README", body: "readme", typeflag: tar.TypeReg},
	{name: "postgis-3.1.2/README.link", typeflag: tar.TypeSymlink, linkname: "doc/README"},
}

func TestExtract(t *testing.T) {
	for _, name := range []string{"postgis-3.1.2.tar.gz", "postgis-3.1.2.tgz", "postgis-3.1.2.tar.xz"} {
		t.Run(name, func(t *testing.T) {
			archive := writeArchive(t, name, sourceTree)
			dest := t.TempDir()

			root, err := Extract(archive, dest)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if filepath.Base(root) != "postgis-3.1.2" {
				t.Errorf("unexpected root %s", root)
			}
			data, err := os.ReadFile(filepath.Join(root, "configure"))
			if err != nil || string(data) != "pj_get_release\n" {
				t.Errorf("configure not extracted: %q, %v", data, err)
			}
			link, err := os.Readlink(filepath.Join(root, "README.link"))
			if err != nil || link != "doc/README" {
				t.Errorf("symlink not extracted: %q, %v", link, err)
			}
		})
	}
}

func TestExtractMultipleTopLevel(t *testing.T) {
	archive := writeArchive(t, "mixed.tar.gz", []entry{
		{name: "a/file", body: "a", typeflag: tar.TypeReg},
		{name: "b/file", body: "b", typeflag: tar.TypeReg},
	})
	dest := t.TempDir()
	root, err := Extract(archive, dest)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	abs, _ := filepath.Abs(dest)
	if root != abs {
		t.Errorf("expected root %s, got %s", abs, root)
	}
}

func TestExtractRejectsEscapes(t *testing.T) {
	tests := []struct {
		name    string
		entries []entry
	}{
		{"dotdot file", []entry{{name: "../evil", body: "x", typeflag: tar.TypeReg}}},
		{"nested dotdot", []entry{{name: "src/../../evil", body: "x", typeflag: tar.TypeReg}}},
		{"absolute symlink", []entry{{name: "src/link", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"}}},
		{"relative symlink out", []entry{{name: "src/link", typeflag: tar.TypeSymlink, linkname: "../../outside"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := writeArchive(t, "bad.tar.gz", tt.entries)
			_, err := Extract(archive, t.TempDir())
			if !errors.Is(err, ErrUnsafePath) {
				t.Fatalf("expected ErrUnsafePath, got %v", err)
			}
		})
	}
}

func TestExtractRejectsSymlinkChain(t *testing.T) {
	archive := writeArchive(t, "chain.tar.gz", []entry{
		{name: "x", typeflag: tar.TypeSymlink, linkname: "."},
		{name: "y", typeflag: tar.TypeSymlink, linkname: "x/.."},
		{name: "y/evil", body: "owned", typeflag: tar.TypeReg},
	})
	root := t.TempDir()
	dest := filepath.Join(root, "dest")

	_, err := Extract(archive, dest)
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
	if _, err := os.Lstat(filepath.Join(root, "evil")); !os.IsNotExist(err) {
		t.Errorf("file written outside destination: %v", err)
	}
}

func TestExtractReplacesSymlinkedFile(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(root, "outside")
	if err := os.WriteFile(outside, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(root, "dest")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(dest, "configure")); err != nil {
		t.Fatal(err)
	}

	archive := writeArchive(t, "src.tar.gz", []entry{{name: "configure", body: "new", typeflag: tar.TypeReg}})
	if _, err := Extract(archive, dest); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if data, _ := os.ReadFile(outside); string(data) != "keep" {
		t.Errorf("write followed symlink out of destination: %q", data)
	}
	if data, _ := os.ReadFile(filepath.Join(dest, "configure")); string(data) != "new" {
		t.Errorf("configure not replaced: %q", data)
	}
}

func TestExtractUnsupported(t *testing.T) {
	archive := writeArchive(t, "source.zip", sourceTree)
	if _, err := Extract(archive, t.TempDir()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.tar.gz")
	if err := os.WriteFile(path, []byte("not gzip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Extract(path, t.TempDir()); err == nil {
		t.Fatal("expected error for corrupt archive")
	}
}
