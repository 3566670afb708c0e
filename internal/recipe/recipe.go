package recipe

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/open-edge-platform/postgis-composer/internal/utils/version"
)

// DepType is the phase a dependency is needed in.
type DepType string

const (
	DepBuild DepType = "build"
	DepLink  DepType = "link"
	DepRun   DepType = "run"
)

var (
	ErrUnknownVersion = errors.New("unknown version")
	ErrUnknownVariant = errors.New("unknown variant")

	sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// Version pairs a release with the sha256 of its source archive.
type Version struct {
	Version string
	SHA256  string
}

// Variant is a named boolean build switch.
type Variant struct {
	Name        string
	Default     bool
	Description string
}

// Dependency is a companion package needed to build or run this one.
type Dependency struct {
	Name  string
	Range string    // version constraint, empty means any
	Types []DepType // empty means build and link
	When  string    // variant that must be enabled, empty means always
}

// Descriptor identifies a distributable package and everything needed to fetch it.
type Descriptor struct {
	Name         string
	Description  string
	Homepage     string
	URLTemplate  string // {version} is substituted
	License      string
	Versions     []Version
	Variants     []Variant
	Dependencies []Dependency
}

// PhaseTypes returns the dependency's phases, applying the build+link default.
func (d Dependency) PhaseTypes() []DepType {
	if len(d.Types) == 0 {
		return []DepType{DepBuild, DepLink}
	}
	return d.Types
}

// NeededAt reports whether the dependency is required in phase t.
func (d Dependency) NeededAt(t DepType) bool {
	for _, pt := range d.PhaseTypes() {
		if pt == t {
			return true
		}
	}
	return false
}

// Validate checks the descriptor's structural invariants.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor has no name")
	}
	if len(d.Versions) == 0 {
		return fmt.Errorf("%s: no versions declared", d.Name)
	}

	seenVersions := make(map[string]bool, len(d.Versions))
	for _, v := range d.Versions {
		if _, err := version.Canonical(v.Version); err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
		if seenVersions[v.Version] {
			return fmt.Errorf("%s: version %s declared more than once", d.Name, v.Version)
		}
		seenVersions[v.Version] = true
		if !sha256Pattern.MatchString(v.SHA256) {
			return fmt.Errorf("%s@%s: checksum %q is not a 64-character lowercase hex sha256", d.Name, v.Version, v.SHA256)
		}
	}

	seenVariants := make(map[string]bool, len(d.Variants))
	for _, v := range d.Variants {
		if v.Name == "" {
			return fmt.Errorf("%s: variant with empty name", d.Name)
		}
		if seenVariants[v.Name] {
			return fmt.Errorf("%s: variant %q declared more than once", d.Name, v.Name)
		}
		seenVariants[v.Name] = true
	}

	for _, dep := range d.Dependencies {
		if dep.Name == "" {
			return fmt.Errorf("%s: dependency with empty name", d.Name)
		}
		if dep.When != "" && !seenVariants[dep.When] {
			return fmt.Errorf("%s: dependency %s conditioned on undeclared variant %q", d.Name, dep.Name, dep.When)
		}
		for _, t := range dep.Types {
			switch t {
			case DepBuild, DepLink, DepRun:
			default:
				return fmt.Errorf("%s: dependency %s has unknown type %q", d.Name, dep.Name, t)
			}
		}
	}
	return nil
}

// Lookup returns the declared version entry for v.
func (d *Descriptor) Lookup(v string) (Version, error) {
	for _, entry := range d.Versions {
		if entry.Version == v {
			return entry, nil
		}
	}
	return Version{}, fmt.Errorf("%s@%s: %w", d.Name, v, ErrUnknownVersion)
}

// Checksum returns the sha256 of the source archive for v.
func (d *Descriptor) Checksum(v string) (string, error) {
	entry, err := d.Lookup(v)
	if err != nil {
		return "", err
	}
	return entry.SHA256, nil
}

// URL returns the source archive location for v.
func (d *Descriptor) URL(v string) (string, error) {
	if _, err := d.Lookup(v); err != nil {
		return "", err
	}
	return strings.ReplaceAll(d.URLTemplate, "{version}", v), nil
}

// ArchiveName is the file name the archive for v is stored under.
func (d *Descriptor) ArchiveName(v string) (string, error) {
	u, err := d.URL(v)
	if err != nil {
		return "", err
	}
	return u[strings.LastIndex(u, "/")+1:], nil
}

// SortedVersions returns the declared versions, newest first.
func (d *Descriptor) SortedVersions() []Version {
	out := append([]Version(nil), d.Versions...)
	sort.SliceStable(out, func(i, j int) bool {
		c, err := version.Compare(out[i].Version, out[j].Version)
		return err == nil && c > 0
	})
	return out
}

// Preferred returns the newest declared version.
func (d *Descriptor) Preferred() Version {
	return d.SortedVersions()[0]
}

// Variant returns the declared variant called name.
func (d *Descriptor) Variant(name string) (Variant, error) {
	for _, v := range d.Variants {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%s: %w %q", d.Name, ErrUnknownVariant, name)
}

// DefaultVariants returns every variant at its default value.
func (d *Descriptor) DefaultVariants() map[string]bool {
	out := make(map[string]bool, len(d.Variants))
	for _, v := range d.Variants {
		out[v.Name] = v.Default
	}
	return out
}

// RequiredDependencies returns the dependencies active under variants.
func (d *Descriptor) RequiredDependencies(variants map[string]bool) []Dependency {
	var out []Dependency
	for _, dep := range d.Dependencies {
		if dep.When != "" && !variants[dep.When] {
			continue
		}
		out = append(out, dep)
	}
	return out
}
