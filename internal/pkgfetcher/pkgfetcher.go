package pkgfetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/open-edge-platform/postgis-composer/internal/recipe"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/open-edge-platform/postgis-composer/internal/utils/network"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")

	httpClient               = network.NewSecureHTTPClient(10 * time.Minute)
	progressWriter io.Writer = os.Stderr
)

// Request is one source archive to download and verify.
type Request struct {
	URL      string
	FileName string
	SHA256   string
}

// RequestsFor builds fetch requests for the given versions of d.
func RequestsFor(d *recipe.Descriptor, versions []string) ([]Request, error) {
	reqs := make([]Request, 0, len(versions))
	for _, v := range versions {
		url, err := d.URL(v)
		if err != nil {
			return nil, err
		}
		name, err := d.ArchiveName(v)
		if err != nil {
			return nil, err
		}
		sum, err := d.Checksum(v)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, Request{URL: url, FileName: name, SHA256: sum})
	}
	return reqs, nil
}

// FetchArchives downloads reqs into destDir using up to workers parallel
// downloads, verifying each against its sha256. Archives already present
// with a matching digest are not downloaded again. It returns the local
// paths in request order; the first failure cancels the rest.
func FetchArchives(ctx context.Context, reqs []Request, destDir string, workers int) ([]string, error) {
	log := logger.Logger()
	if workers < 1 {
		workers = 1
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", destDir, err)
	}

	bar := progressbar.NewOptions(len(reqs),
		progressbar.OptionSetWriter(progressWriter),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	paths := make([]string, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, req := range reqs {
		g.Go(func() error {
			bar.Describe(fmt.Sprintf("downloading %s", req.FileName))
			dest := filepath.Join(destDir, req.FileName)

			if err := VerifyChecksum(dest, req.SHA256); err == nil {
				log.Debugf("%s already cached", req.FileName)
				logger.AddReportItem(req.URL + " cached")
			} else {
				if err := download(ctx, req, dest); err != nil {
					log.Errorf("downloading %s failed: %v", req.URL, err)
					return err
				}
				logger.AddReportItem(req.URL + " sha256=" + req.SHA256)
			}

			paths[i] = dest
			_ = bar.Add(1)
			return nil
		})
	}

	err := g.Wait()
	_ = bar.Finish()
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// download streams req into dest, hashing on the way. A digest mismatch
// leaves nothing at dest. An empty req.SHA256 skips the digest check.
func download(ctx context.Context, req Request, dest string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", req.URL, err)
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: bad status: %s", req.URL, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+req.FileName+".part-*")
	if err != nil {
		return fmt.Errorf("creating partial file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", req.FileName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}

	got := hex.EncodeToString(h.Sum(nil))
	if req.SHA256 != "" && got != req.SHA256 {
		return fmt.Errorf("%s: %w: expected %s, got %s", req.FileName, ErrChecksumMismatch, req.SHA256, got)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("moving %s into place: %w", req.FileName, err)
	}
	return nil
}

// VerifyChecksum hashes the file at path and compares it with want.
func VerifyChecksum(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hashing %s: %w", path, err)
	}
	got := hex.EncodeToString(h.Sum(nil))
	if got != want {
		return fmt.Errorf("%s: %w: expected %s, got %s", filepath.Base(path), ErrChecksumMismatch, want, got)
	}
	return nil
}
