package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/open-edge-platform/postgis-composer/internal/buildctx"
	"github.com/open-edge-platform/postgis-composer/internal/config/manifest"
	"github.com/open-edge-platform/postgis-composer/internal/configure"
	"github.com/open-edge-platform/postgis-composer/internal/patch"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/open-edge-platform/postgis-composer/internal/utils/shell"
	"github.com/open-edge-platform/postgis-composer/internal/utils/system"
	"github.com/open-edge-platform/postgis-composer/internal/verify"
)

var (
	// Replaced in tests.
	execCmdWithStream = shell.ExecCmdWithStream
	makeCheck         = verify.MakeCheck
	runCheck          = verify.Run
	requireTools      = system.RequireTools
)

// Options selects the optional phases of a build.
type Options struct {
	Jobs    int    // parallel make jobs; below 1 means serial
	Check   bool   // run make check against a throwaway server
	Test    bool   // run the library version check after install
	TempDir string // parent directory for throwaway servers
}

// Result describes a finished build.
type Result struct {
	Patches       []string
	ConfigureArgs []string
	LibVersion    string
	ManifestPath  string
}

// Build runs the full pipeline for bctx in the unpacked source tree srcDir:
// patch, configure, make, make install, the post-install link, and the
// optional check and test phases. It stops at the first failing phase.
func Build(ctx context.Context, bctx *buildctx.Context, srcDir string, opts Options) (*Result, error) {
	log := logger.Logger()
	res := &Result{}
	env := shell.EnvList(configure.BuildEnv())

	if err := requireTools(system.BuildTools...); err != nil {
		return nil, fmt.Errorf("%s: %w", bctx.Spec(), err)
	}

	if err := phase(ctx, "patch", bctx, func() error {
		applied, err := patch.Apply(srcDir, bctx, patch.Rules())
		res.Patches = applied
		return err
	}); err != nil {
		return nil, err
	}

	if err := phase(ctx, "configure", bctx, func() error {
		args, err := configure.Args(bctx)
		if err != nil {
			return err
		}
		res.ConfigureArgs = args
		cmd := ConfigureCommand(bctx.InstallPrefix(), args)
		_, err = execCmdWithStream(cmd, srcDir, env)
		return err
	}); err != nil {
		return nil, err
	}

	if err := phase(ctx, "build", bctx, func() error {
		_, err := execCmdWithStream(makeCommand(opts.Jobs), srcDir, env)
		return err
	}); err != nil {
		return nil, err
	}

	if opts.Check {
		if err := phase(ctx, "check", bctx, func() error {
			sessOpts, err := verify.SessionOptions(bctx, opts.TempDir)
			if err != nil {
				return err
			}
			return makeCheck(sessOpts, srcDir)
		}); err != nil {
			return nil, err
		}
	}

	if err := phase(ctx, "install", bctx, func() error {
		_, err := execCmdWithStream("make install", srcDir, env)
		return err
	}); err != nil {
		return nil, err
	}

	if err := phase(ctx, "post-install", bctx, func() error {
		return SatisfySanityCheck(bctx)
	}); err != nil {
		return nil, err
	}

	if opts.Test {
		if err := phase(ctx, "test", bctx, func() error {
			sessOpts, err := verify.SessionOptions(bctx, opts.TempDir)
			if err != nil {
				return err
			}
			got, err := runCheck(sessOpts, verify.PostgisLibVersion(bctx.Version()))
			res.LibVersion = got
			return err
		}); err != nil {
			return nil, err
		}
	}

	path, err := writeManifest(bctx, res)
	if err != nil {
		return nil, err
	}
	res.ManifestPath = path

	log.Infof("✓ %s installed into %s", bctx.Spec(), bctx.InstallPrefix())
	return res, nil
}

func phase(ctx context.Context, name string, bctx *buildctx.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %s phase not started: %w", bctx.Spec(), name, err)
	}
	logger.Logger().Infof("==> %s: %s", bctx.Spec(), name)
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %s phase failed: %w", bctx.Spec(), name, err)
	}
	return nil
}

// ConfigureCommand renders the ./configure invocation for prefix and args.
func ConfigureCommand(prefix string, args []string) string {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, "./configure", "--prefix="+shell.Quote(prefix))
	for _, a := range args {
		parts = append(parts, shell.Quote(a))
	}
	return strings.Join(parts, " ")
}

func makeCommand(jobs int) string {
	if jobs > 1 {
		return "make -j" + strconv.Itoa(jobs)
	}
	return "make"
}

// SatisfySanityCheck links <prefix>/postgresql to the postgresql prefix.
// PostGIS installs its files into PostgreSQL's tree, so without the link the
// package's own prefix would be empty. An existing correct link is kept.
func SatisfySanityCheck(bctx *buildctx.Context) error {
	pgPrefix, err := bctx.DepPrefix("postgresql")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(bctx.InstallPrefix(), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", bctx.InstallPrefix(), err)
	}

	link := filepath.Join(bctx.InstallPrefix(), "postgresql")
	if current, err := os.Readlink(link); err == nil {
		if current == pgPrefix {
			return nil
		}
		return fmt.Errorf("%s already links to %s, not %s", link, current, pgPrefix)
	} else if _, statErr := os.Lstat(link); statErr == nil {
		return fmt.Errorf("%s exists and is not a symlink", link)
	}

	if err := os.Symlink(pgPrefix, link); err != nil {
		return fmt.Errorf("failed to link %s: %w", link, err)
	}
	return nil
}

func writeManifest(bctx *buildctx.Context, res *Result) (string, error) {
	m := manifest.New()
	m.Package = bctx.Package()
	m.Version = bctx.Version()
	m.Spec = bctx.Spec()
	m.Prefix = bctx.InstallPrefix()
	m.Variants = bctx.Variants()
	m.ConfigureArgs = res.ConfigureArgs
	m.Patches = res.Patches
	m.LibVersion = res.LibVersion
	if sum, err := bctx.Descriptor().Checksum(bctx.Version()); err == nil {
		m.SourceHash = sum
	}
	for _, name := range bctx.DepNames() {
		prefix, _ := bctx.DepPrefix(name)
		v, _ := bctx.DepVersion(name)
		m.Dependencies = append(m.Dependencies, manifest.Dependency{Name: name, Prefix: prefix, Version: v})
	}

	path := manifest.PathFor(bctx.InstallPrefix())
	if err := manifest.WriteManifestToFile(m, path); err != nil {
		return "", err
	}
	return path, nil
}
