package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	SchemaVersion = "1.0"
	// FileName is written under <prefix>/.postgis-composer/ after install.
	FileName = "manifest.json"
	Dir      = ".postgis-composer"
)

// Dependency records the prefix and version a build was linked against.
type Dependency struct {
	Name    string `json:"name"`
	Prefix  string `json:"prefix"`
	Version string `json:"version,omitempty"`
}

// BuildManifest is the receipt left next to an installed package.
type BuildManifest struct {
	SchemaVersion     string          `json:"schema_version"`
	DocumentNamespace string          `json:"document_namespace"`
	Package           string          `json:"package"`
	Version           string          `json:"version"`
	Spec              string          `json:"spec"`
	Prefix            string          `json:"prefix"`
	Variants          map[string]bool `json:"variants"`
	Dependencies      []Dependency    `json:"dependencies"`
	ConfigureArgs     []string        `json:"configure_args"`
	Patches           []string        `json:"patches"`
	SourceHash        string          `json:"source_hash"`
	HashAlg           string          `json:"hash_alg"`
	LibVersion        string          `json:"lib_version,omitempty"`
	BuiltAt           string          `json:"built_at"`
}

// New returns a manifest stamped with the current time and a fresh namespace.
func New() BuildManifest {
	return BuildManifest{
		SchemaVersion:     SchemaVersion,
		DocumentNamespace: generateDocumentNamespace(),
		HashAlg:           "sha256",
		BuiltAt:           time.Now().UTC().Format(time.RFC3339),
	}
}

func generateDocumentNamespace() string {
	return "https://postgis-composer/builds/" + uuid.NewString()
}

// PathFor returns where the manifest for an install prefix lives.
func PathFor(prefix string) string {
	return filepath.Join(prefix, Dir, FileName)
}

// WriteManifestToFile writes m as indented JSON, creating parent directories.
func WriteManifestToFile(m BuildManifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifestToFile.
func ReadManifest(path string) (*BuildManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported manifest schema version %q", m.SchemaVersion)
	}
	return &m, nil
}
