// Package pgtest installs stand-in pg_ctl and psql executables so session
// lifecycles can be tested without a PostgreSQL installation.
package pgtest

import (
	"embed"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

//go:embed scripts/pg_ctl scripts/psql
var scripts embed.FS

// Environment switches understood by the fake binaries.
const (
	FailInit      = "FAKE_PG_FAIL_INIT"
	FailStart     = "FAKE_PG_FAIL_START"
	FailStop      = "FAKE_PG_FAIL_STOP"
	CallLog       = "FAKE_PG_CALL_LOG"
	PostgisVerEnv = "FAKE_POSTGIS_VERSION"
)

// InstallFakeBinaries writes pg_ctl and psql into a fresh directory and
// returns it. The test is skipped when no POSIX shell is available.
func InstallFakeBinaries(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("No shell available for fake postgres binaries")
	}

	binDir := t.TempDir()
	for _, name := range []string{"pg_ctl", "psql"} {
		data, err := scripts.ReadFile("scripts/" + name)
		if err != nil {
			t.Fatalf("reading embedded %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(binDir, name), data, 0755); err != nil {
			t.Fatalf("writing fake %s: %v", name, err)
		}
	}
	return binDir
}

// RealBinDir returns the directory of an installed pg_ctl, skipping the test
// when PostgreSQL is not installed or the test runs as root (initdb refuses).
func RealBinDir(t *testing.T) string {
	t.Helper()
	if dir := os.Getenv("POSTGIS_COMPOSER_PG_BIN"); dir != "" {
		if os.Geteuid() == 0 {
			t.Skip("initdb cannot run as root")
		}
		return dir
	}
	path, err := exec.LookPath("pg_ctl")
	if err != nil {
		t.Skip("pg_ctl not found; set POSTGIS_COMPOSER_PG_BIN to run against a real server")
	}
	if os.Geteuid() == 0 {
		t.Skip("initdb cannot run as root")
	}
	return filepath.Dir(path)
}
