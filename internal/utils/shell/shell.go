package shell

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
)

// Command runners are variables so tests can substitute them.
var (
	ExecCmd           = execCmd
	ExecCmdSilent     = execCmdSilent
	ExecCmdStdout     = execCmdStdout
	ExecCmdWithStream = execCmdWithStream
	ExecCmdWithInput  = execCmdWithInput
)

// GetOSEnvirons returns the system environment variables
func GetOSEnvirons() map[string]string {
	environ := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			environ[parts[0]] = parts[1]
		}
	}
	return environ
}

// EnvList renders an environment map as sorted KEY=VALUE entries.
func EnvList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// getShell returns the preferred shell, falling back to /bin/sh if bash is not available
func getShell() string {
	shells := []string{"/bin/bash", "/usr/bin/bash", "/bin/sh"}
	for _, shell := range shells {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh"
}

// Quote wraps s in single quotes so the shell passes it through as one word.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
			strings.ContainsRune("-_./=:,+@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// IsCommandExist checks if a command exists in the system
func IsCommandExist(cmd string) bool {
	output, _ := exec.Command(getShell(), "-c", "command -v "+Quote(cmd)).Output()
	return len(bytes.TrimSpace(output)) != 0
}

// GetFullCmdStr prepares a command string with the given environment exported first
func GetFullCmdStr(cmdStr string, envVal []string) (string, error) {
	var prefix strings.Builder
	for _, env := range envVal {
		key, value, ok := strings.Cut(env, "=")
		if !ok || key == "" {
			return cmdStr, fmt.Errorf("invalid environment entry %q, expected KEY=VALUE", env)
		}
		prefix.WriteString("export " + key + "=" + Quote(value) + "; ")
	}
	return prefix.String() + cmdStr, nil
}

func newCommand(fullCmdStr, workDir string) *exec.Cmd {
	cmd := exec.Command(getShell(), "-c", fullCmdStr)
	if workDir != "" {
		cmd.Dir = workDir
	}
	return cmd
}

func logExec(cmdStr, workDir string) {
	log := logger.Logger()
	if workDir != "" {
		log.Debugf("Exec (%s): [%s]", workDir, cmdStr)
	} else {
		log.Debugf("Exec: [%s]", cmdStr)
	}
}

// execCmd executes a command and returns its combined output
func execCmd(cmdStr string, workDir string, envVal []string) (string, error) {
	log := logger.Logger()
	fullCmdStr, err := GetFullCmdStr(cmdStr, envVal)
	if err != nil {
		return "", fmt.Errorf("failed to get full command string: %w", err)
	}
	logExec(cmdStr, workDir)

	output, err := newCommand(fullCmdStr, workDir).CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Infof("%s", outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", cmdStr, err)
	}
	if outputStr != "" {
		log.Debugf("%s", outputStr)
	}
	return outputStr, nil
}

// execCmdSilent is execCmd without logging the output of a failed command.
func execCmdSilent(cmdStr string, workDir string, envVal []string) (string, error) {
	fullCmdStr, err := GetFullCmdStr(cmdStr, envVal)
	if err != nil {
		return "", fmt.Errorf("failed to get full command string: %w", err)
	}
	logExec(cmdStr, workDir)

	output, err := newCommand(fullCmdStr, workDir).CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("failed to exec %s: %w", cmdStr, err)
	}
	return string(output), nil
}

// execCmdStdout executes a command and returns its standard output only.
// Standard error is logged and, when the command fails, carried in the error.
func execCmdStdout(cmdStr string, workDir string, envVal []string) (string, error) {
	log := logger.Logger()
	fullCmdStr, err := GetFullCmdStr(cmdStr, envVal)
	if err != nil {
		return "", fmt.Errorf("failed to get full command string: %w", err)
	}
	logExec(cmdStr, workDir)

	var stdout, stderr bytes.Buffer
	cmd := newCommand(fullCmdStr, workDir)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()

	errStr := strings.TrimSpace(stderr.String())
	if err != nil {
		if errStr != "" {
			return stdout.String(), fmt.Errorf("failed to exec %s: %w: %s", cmdStr, err, errStr)
		}
		return stdout.String(), fmt.Errorf("failed to exec %s: %w", cmdStr, err)
	}
	if errStr != "" {
		log.Debugf("%s", errStr)
	}
	return stdout.String(), nil
}

// execCmdWithStream executes a command and streams its output to the log
func execCmdWithStream(cmdStr string, workDir string, envVal []string) (string, error) {
	var outputStr strings.Builder
	log := logger.Logger()

	fullCmdStr, err := GetFullCmdStr(cmdStr, envVal)
	if err != nil {
		return "", fmt.Errorf("failed to get full command string: %w", err)
	}
	logExec(cmdStr, workDir)

	cmd := newCommand(fullCmdStr, workDir)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe for command %s: %w", cmdStr, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe for command %s: %w", cmdStr, err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start command %s: %w", cmdStr, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			str := scanner.Text()
			if str != "" {
				outputStr.WriteString(str + "\n")
				log.Infof("%s", str)
			}
		}
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			str := scanner.Text()
			if str != "" {
				log.Infof("%s", str)
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return outputStr.String(), fmt.Errorf("failed to wait for command %s: %w", cmdStr, err)
	}

	return outputStr.String(), nil
}

// execCmdWithInput executes a command with input string on stdin
func execCmdWithInput(inputStr string, cmdStr string, workDir string, envVal []string) (string, error) {
	log := logger.Logger()
	fullCmdStr, err := GetFullCmdStr(cmdStr, envVal)
	if err != nil {
		return "", fmt.Errorf("failed to get full command string: %w", err)
	}
	logExec(cmdStr, workDir)

	cmd := newCommand(fullCmdStr, workDir)
	cmd.Stdin = strings.NewReader(inputStr)

	output, err := cmd.CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Infof("%s", outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", cmdStr, err)
	}
	if outputStr != "" {
		log.Debugf("%s", outputStr)
	}
	return outputStr, nil
}
