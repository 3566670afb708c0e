package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/open-edge-platform/postgis-composer/internal/buildctx"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/open-edge-platform/postgis-composer/internal/utils/version"
)

// Rule is a textual substitution applied to one source file before building
// when its predicate holds for the build context.
type Rule struct {
	Name        string
	File        string // relative to the source root
	Pattern     *regexp.Regexp
	Replacement string
	Applies     func(ctx *buildctx.Context) (bool, error)
}

// NeedsProjInfoFix reports whether PostGIS pkgVersion's configure script
// probes pj_get_release, which PROJ 8 removed (postgis ticket #4833).
func NeedsProjInfoFix(pkgVersion, projVersion string) (bool, error) {
	oldPostgis, err := version.Satisfies(pkgVersion, ":3.1.1")
	if err != nil {
		return false, fmt.Errorf("postgis version: %w", err)
	}
	if !oldPostgis {
		return false, nil
	}
	newProj, err := version.Satisfies(projVersion, "8:")
	if err != nil {
		return false, fmt.Errorf("proj version: %w", err)
	}
	return newProj, nil
}

// Rules returns the PostGIS source patches.
func Rules() []Rule {
	return []Rule{
		{
			Name:        "proj8-pj_get_release",
			File:        "configure",
			Pattern:     regexp.MustCompile(`\bpj_get_release\b`),
			Replacement: "proj_info",
			Applies: func(ctx *buildctx.Context) (bool, error) {
				if !version.MustSatisfy(ctx.Version(), ":3.1.1") {
					return false, nil
				}
				projVersion, ok := ctx.DepVersion("proj")
				if !ok {
					return false, fmt.Errorf("proj version is required to decide whether to patch %s", ctx.Spec())
				}
				return NeedsProjInfoFix(ctx.Version(), projVersion)
			},
		},
	}
}

// Apply runs every rule whose predicate holds against srcDir and returns
// the names of the rules that fired.
func Apply(srcDir string, ctx *buildctx.Context, rules []Rule) ([]string, error) {
	log := logger.Logger()
	var applied []string

	for _, rule := range rules {
		ok, err := rule.Applies(ctx)
		if err != nil {
			return applied, fmt.Errorf("evaluating patch %s: %w", rule.Name, err)
		}
		if !ok {
			log.Debugf("patch %s does not apply to %s", rule.Name, ctx.Spec())
			continue
		}

		target := filepath.Join(srcDir, rule.File)
		changed, err := FilterFile(target, rule.Pattern, rule.Replacement)
		if err != nil {
			return applied, fmt.Errorf("applying patch %s: %w", rule.Name, err)
		}
		log.Infof("patch %s applied to %s (changed=%v)", rule.Name, target, changed)
		applied = append(applied, rule.Name)
	}
	return applied, nil
}

// FilterFile replaces every match of pattern in path with repl, keeping the
// file mode. It reports whether the content changed.
func FilterFile(path string, pattern *regexp.Regexp, repl string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	out := pattern.ReplaceAll(data, []byte(repl))
	if string(out) == string(data) {
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return false, fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return false, fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("replacing %s: %w", path, err)
	}
	return true, nil
}
