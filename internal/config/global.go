package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/open-edge-platform/postgis-composer/internal/config/validate"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// DefaultConfigFile is looked up in the working directory when --config is not given.
const DefaultConfigFile = "postgis-composer.yml"

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// GlobalConfig holds tool-wide settings that are independent of any one build.
type GlobalConfig struct {
	Workers  int           `yaml:"workers" env:"WORKERS"`
	CacheDir string        `yaml:"cache_dir" env:"CACHE_DIR"`
	WorkDir  string        `yaml:"work_dir" env:"WORK_DIR"`
	TempDir  string        `yaml:"temp_dir" env:"TEMP_DIR"`
	Logging  LoggingConfig `yaml:"logging"`
}

var (
	globalMu     sync.RWMutex
	globalConfig = DefaultGlobalConfig()
)

// DefaultGlobalConfig returns the configuration used when no file is present.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Workers:  4,
		CacheDir: "./cache",
		WorkDir:  "./workspace",
		TempDir:  "",
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadGlobalConfig reads the YAML file at path on top of the defaults, then
// applies POSTGIS_COMPOSER_* environment overrides. An empty path with no
// default file present yields defaults plus environment.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := parseGlobalConfig(data, cfg); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "POSTGIS_COMPOSER_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	return cfg, nil
}

func parseGlobalConfig(data []byte, cfg *GlobalConfig) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("converting YAML to JSON: %w", err)
	}
	if err := validate.ValidateConfigJSON(jsonData); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// SetGlobal installs cfg as the process-wide configuration.
func SetGlobal(cfg *GlobalConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// Global returns the process-wide configuration.
func Global() *GlobalConfig {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// WorkDir returns the absolute global work directory.
func WorkDir() (string, error) {
	return filepath.Abs(Global().WorkDir)
}

// CacheDir returns the absolute global cache directory.
func CacheDir() (string, error) {
	return filepath.Abs(Global().CacheDir)
}

// TempDir returns the directory ephemeral sessions are created under.
func TempDir() string {
	return NewConfigHelpers(Global()).TempDir()
}
