package verify

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/postgis-composer/internal/buildctx"
	"github.com/open-edge-platform/postgis-composer/internal/configure"
	"github.com/open-edge-platform/postgis-composer/internal/pgsession"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/open-edge-platform/postgis-composer/internal/utils/shell"
)

// LibVersionCheck loads an extension into a fresh database and asserts that
// a version query reports the expected release.
type LibVersionCheck struct {
	Database string
	Setup    []string
	Query    string
	Expect   string
}

// MismatchError is returned when the version query output lacks the expected text.
type MismatchError struct {
	Query  string
	Expect string
	Got    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s returned %q, expected it to contain %q", e.Query, e.Got, e.Expect)
}

// PostgisLibVersion is the check for an installed PostGIS at pkgVersion.
func PostgisLibVersion(pkgVersion string) LibVersionCheck {
	return LibVersionCheck{
		Database: pgsession.DefaultDatabase,
		Setup:    []string{"CREATE EXTENSION postgis"},
		Query:    "SELECT PostGIS_Lib_Version()",
		Expect:   pkgVersion,
	}
}

// SessionOptions returns options for an ephemeral server from the build's
// postgresql dependency, carrying the run environment.
func SessionOptions(ctx *buildctx.Context, tempDir string) (pgsession.Options, error) {
	pgPrefix, err := ctx.DepPrefix("postgresql")
	if err != nil {
		return pgsession.Options{}, err
	}
	return pgsession.Options{
		BinDir:  filepath.Join(pgPrefix, "bin"),
		TempDir: tempDir,
		Env:     shell.EnvList(configure.RunEnv()),
	}, nil
}

// Check runs c inside s.
func (c LibVersionCheck) Check(s *pgsession.Session) (string, error) {
	for _, stmt := range c.Setup {
		if _, err := s.Query(stmt, c.Database); err != nil {
			return "", fmt.Errorf("setup: %w", err)
		}
	}
	out, err := s.Query(c.Query, c.Database)
	if err != nil {
		return "", err
	}
	got := strings.TrimSpace(out)
	if !strings.Contains(got, c.Expect) {
		return got, &MismatchError{Query: c.Query, Expect: c.Expect, Got: got}
	}
	return got, nil
}

// Run performs c against a throwaway server described by opts.
func Run(opts pgsession.Options, c LibVersionCheck) (string, error) {
	log := logger.Logger()
	var got string
	err := pgsession.With(opts, func(s *pgsession.Session) error {
		var err error
		got, err = c.Check(s)
		return err
	})
	if err != nil {
		return got, fmt.Errorf("library version check: %w", err)
	}
	log.Infof("✓ %s reported %s", c.Query, got)
	return got, nil
}

// MakeCheck runs the source tree's regression suite (make check) against a
// throwaway server, pointing it there through PGHOST.
func MakeCheck(opts pgsession.Options, srcDir string) error {
	return pgsession.With(opts, func(s *pgsession.Session) error {
		host, err := s.Query(`\echo :HOST`, pgsession.DefaultDatabase)
		if err != nil {
			return fmt.Errorf("resolving session host: %w", err)
		}
		cmd := "make check PGHOST=" + shell.Quote(strings.TrimSpace(host))
		if _, err := shell.ExecCmdWithStream(cmd, srcDir, opts.Env); err != nil {
			return fmt.Errorf("make check: %w", err)
		}
		return nil
	})
}
