package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/ulikunitz/xz"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrUnsafePath        = errors.New("archive entry escapes destination")
)

// Extract unpacks a .tar.gz, .tgz or .tar.xz source archive into dest and
// returns the path of its top-level directory. Archives whose entries do not
// share a single top-level directory return dest itself.
func Extract(archivePath, dest string) (string, error) {
	log := logger.Logger()

	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader
	switch name := filepath.Base(archivePath); {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xr
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return "", err
	}
	realDest, err := filepath.EvalSymlinks(absDest)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dest, err)
	}

	top := ""
	single := true
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", archivePath, err)
		}

		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		target, err := safeJoin(absDest, hdr.Name)
		if err != nil {
			return "", err
		}
		if rel, _ := filepath.Rel(absDest, target); rel != "." {
			first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
			switch {
			case top == "":
				top = first
			case top != first:
				single = false
			}
		}

		if err := writeEntry(tr, hdr, absDest, realDest, target); err != nil {
			return "", err
		}
	}

	root := absDest
	if single && top != "" {
		if info, err := os.Stat(filepath.Join(absDest, top)); err == nil && info.IsDir() {
			root = filepath.Join(absDest, top)
		}
	}
	log.Infof("extracted %s into %s", filepath.Base(archivePath), root)
	return root, nil
}

func within(dest, path string) bool {
	return path == dest || strings.HasPrefix(path, dest+string(os.PathSeparator))
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if !within(dest, target) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// resolveWithin follows the symlinks along the existing part of path and
// fails unless the resolved location stays inside realDest.
func resolveWithin(realDest, path, name string) error {
	existing, rest := path, ""
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnsafePath, name, err)
	}
	if !within(realDest, filepath.Join(resolved, rest)) {
		return fmt.Errorf("%w: %s resolves to %s", ErrUnsafePath, name, filepath.Join(resolved, rest))
	}
	return nil
}

func writeEntry(tr *tar.Reader, hdr *tar.Header, dest, realDest, target string) error {
	mode := os.FileMode(hdr.Mode).Perm()

	check := filepath.Dir(target)
	if hdr.Typeflag == tar.TypeDir {
		check = target
	}
	if err := resolveWithin(realDest, check, hdr.Name); err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, mode|0700)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(target); err != nil {
				return err
			}
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", target, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		return out.Close()
	case tar.TypeSymlink:
		if filepath.IsAbs(hdr.Linkname) || !within(dest, filepath.Join(filepath.Dir(target), hdr.Linkname)) {
			return fmt.Errorf("%w: symlink %s -> %s", ErrUnsafePath, hdr.Name, hdr.Linkname)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		_ = os.Remove(target)
		return os.Symlink(hdr.Linkname, target)
	case tar.TypeLink:
		src, err := safeJoin(dest, hdr.Linkname)
		if err != nil {
			return err
		}
		if err := resolveWithin(realDest, src, hdr.Linkname); err != nil {
			return err
		}
		_ = os.Remove(target)
		return os.Link(src, target)
	default:
		logger.Logger().Debugf("skipping %s (type %c)", hdr.Name, hdr.Typeflag)
		return nil
	}
}

