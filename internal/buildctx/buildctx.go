package buildctx

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-edge-platform/postgis-composer/internal/config/validate"
	"github.com/open-edge-platform/postgis-composer/internal/recipe"
	"github.com/open-edge-platform/postgis-composer/internal/utils/version"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// Dep is the resolved install of one dependency.
type Dep struct {
	Prefix  string `yaml:"prefix"`
	Version string `yaml:"version,omitempty"`
}

type contextFile struct {
	Package      string          `yaml:"package"`
	Version      string          `yaml:"version"`
	Prefix       string          `yaml:"prefix"`
	Variants     map[string]bool `yaml:"variants,omitempty"`
	Dependencies map[string]Dep  `yaml:"dependencies"`
}

// Context is the fully resolved input of one build: where every dependency
// lives and which variants are on. It is immutable once constructed.
type Context struct {
	descriptor *recipe.Descriptor
	version    string
	prefix     string
	deps       map[string]Dep
	variants   map[string]bool
}

// Load reads and validates a build context YAML file for descriptor d.
func Load(path string, d *recipe.Descriptor) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading build context %s: %w", path, err)
	}
	ctx, err := Parse(data, d)
	if err != nil {
		return nil, fmt.Errorf("build context %s: %w", path, err)
	}
	return ctx, nil
}

// Parse decodes a build context document for descriptor d.
func Parse(data []byte, d *recipe.Descriptor) (*Context, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty build context")
	}

	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting YAML to JSON: %w", err)
	}
	if err := validate.ValidateBuildContextJSON(jsonData); err != nil {
		return nil, err
	}

	var f contextFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if f.Package != d.Name {
		return nil, fmt.Errorf("context is for package %q, recipe is %q", f.Package, d.Name)
	}
	return New(d, f.Version, f.Prefix, f.Dependencies, f.Variants)
}

// New builds a Context after checking it against the descriptor: the version
// must be declared, variants must exist, and every link-time dependency
// active under the variants must have a prefix that satisfies its range.
func New(d *recipe.Descriptor, pkgVersion, prefix string, deps map[string]Dep, variants map[string]bool) (*Context, error) {
	if _, err := d.Lookup(pkgVersion); err != nil {
		return nil, err
	}
	if prefix == "" {
		return nil, fmt.Errorf("install prefix is required")
	}

	resolved := d.DefaultVariants()
	for name, on := range variants {
		if _, err := d.Variant(name); err != nil {
			return nil, err
		}
		resolved[name] = on
	}

	copied := make(map[string]Dep, len(deps))
	for name, dep := range deps {
		copied[name] = dep
	}

	for _, dep := range d.RequiredDependencies(resolved) {
		if !dep.NeededAt(recipe.DepLink) {
			continue
		}
		got, ok := copied[dep.Name]
		if !ok || got.Prefix == "" {
			return nil, fmt.Errorf("missing prefix for required dependency %s", dep.Name)
		}
		if dep.Range != "" && got.Version != "" {
			ok, err := version.Satisfies(got.Version, dep.Range)
			if err != nil {
				return nil, fmt.Errorf("dependency %s: %w", dep.Name, err)
			}
			if !ok {
				return nil, fmt.Errorf("dependency %s@%s does not satisfy @%s", dep.Name, got.Version, dep.Range)
			}
		}
	}

	return &Context{
		descriptor: d,
		version:    pkgVersion,
		prefix:     prefix,
		deps:       copied,
		variants:   resolved,
	}, nil
}

// Descriptor returns the recipe this context was resolved against.
func (c *Context) Descriptor() *recipe.Descriptor { return c.descriptor }

// Package returns the package name.
func (c *Context) Package() string { return c.descriptor.Name }

// Version returns the package version being built.
func (c *Context) Version() string { return c.version }

// InstallPrefix returns this package's own install prefix.
func (c *Context) InstallPrefix() string { return c.prefix }

// DepPrefix returns the install prefix of dependency name.
func (c *Context) DepPrefix(name string) (string, error) {
	dep, ok := c.deps[name]
	if !ok || dep.Prefix == "" {
		return "", fmt.Errorf("dependency %s is not part of the build context", name)
	}
	return dep.Prefix, nil
}

// DepBin returns the path of tool inside dependency name's bin directory.
func (c *Context) DepBin(name, tool string) (string, error) {
	prefix, err := c.DepPrefix(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(prefix, "bin", tool), nil
}

// DepVersion returns the recorded version of dependency name, if any.
func (c *Context) DepVersion(name string) (string, bool) {
	dep, ok := c.deps[name]
	if !ok || dep.Version == "" {
		return "", false
	}
	return dep.Version, true
}

// Enabled reports whether variant name is on.
func (c *Context) Enabled(name string) bool {
	return c.variants[name]
}

// Variants returns a copy of the variant states.
func (c *Context) Variants() map[string]bool {
	out := make(map[string]bool, len(c.variants))
	for k, v := range c.variants {
		out[k] = v
	}
	return out
}

// DepNames returns the names of all dependencies in the context, sorted.
func (c *Context) DepNames() []string {
	names := make([]string, 0, len(c.deps))
	for name := range c.deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec renders the context in name@version+variant form for logs.
func (c *Context) Spec() string {
	s := c.descriptor.Name + "@" + c.version
	names := make([]string, 0, len(c.variants))
	for name := range c.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if c.variants[name] {
			s += "+" + name
		} else {
			s += "~" + name
		}
	}
	return s
}
