package system

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/open-edge-platform/postgis-composer/internal/utils/shell"
)

var (
	OsReleaseFile = "/etc/os-release"

	// BuildTools are needed on the host to compile an autotools source tree.
	BuildTools = []string{"sh", "make", "cc", "c++"}

	// commandExists is replaced in tests.
	commandExists = shell.IsCommandExist
)

// HostInfo describes the machine a build runs on.
type HostInfo struct {
	Name    string   // e.g. "Ubuntu"
	Version string   // e.g. "22.04"
	ID      string   // e.g. "ubuntu"
	IDLike  []string // e.g. ["debian"]
	Arch    string   // uname -m
}

// GetHostOsInfo reads the architecture from uname and the distribution from
// /etc/os-release. A missing os-release file is not an error.
func GetHostOsInfo() (*HostInfo, error) {
	log := logger.Logger()
	info := &HostInfo{}

	output, err := shell.ExecCmd("uname -m", "", nil)
	if err != nil {
		return info, fmt.Errorf("failed to get host architecture: %w", err)
	}
	info.Arch = strings.TrimSpace(output)

	file, err := os.Open(OsReleaseFile)
	if os.IsNotExist(err) {
		log.Debugf("%s not found, distribution unknown", OsReleaseFile)
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("failed to open %s: %w", OsReleaseFile, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "\"")
		switch strings.TrimSpace(key) {
		case "NAME":
			info.Name = value
		case "VERSION_ID":
			info.Version = value
		case "ID":
			info.ID = strings.ToLower(value)
		case "ID_LIKE":
			info.IDLike = strings.Fields(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return info, fmt.Errorf("error reading %s: %w", OsReleaseFile, err)
	}

	log.Debugf("Detected host: %s %s (%s)", info.Name, info.Version, info.Arch)
	return info, nil
}

// PkgManager names the host package manager family, or "" when unknown.
func (h *HostInfo) PkgManager() string {
	ids := append([]string{h.ID}, h.IDLike...)
	switch {
	case slices.ContainsFunc(ids, func(id string) bool { return id == "debian" || id == "ubuntu" }):
		return "apt"
	case slices.ContainsFunc(ids, func(id string) bool {
		return id == "fedora" || id == "rhel" || id == "centos"
	}):
		return "dnf"
	case slices.Contains(ids, "azurelinux") || slices.Contains(ids, "mariner"):
		return "tdnf"
	default:
		return ""
	}
}

// InstallHint suggests how to get the compiler toolchain on this host.
func (h *HostInfo) InstallHint() string {
	switch h.PkgManager() {
	case "apt":
		return "apt-get install build-essential"
	case "dnf":
		return "dnf install make gcc gcc-c++"
	case "tdnf":
		return "tdnf install build-essential"
	default:
		return "install make and a C/C++ compiler"
	}
}

// MissingToolsError lists host commands a build needs but cannot find.
type MissingToolsError struct {
	Tools []string
	Hint  string
}

func (e *MissingToolsError) Error() string {
	msg := "missing host tools: " + strings.Join(e.Tools, ", ")
	if e.Hint != "" {
		msg += " (try: " + e.Hint + ")"
	}
	return msg
}

// RequireTools returns a *MissingToolsError naming every tool not on PATH.
func RequireTools(tools ...string) error {
	var missing []string
	for _, tool := range tools {
		if !commandExists(tool) {
			missing = append(missing, tool)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	err := &MissingToolsError{Tools: missing}
	if info, infoErr := GetHostOsInfo(); infoErr == nil {
		err.Hint = info.InstallHint()
	}
	return err
}
