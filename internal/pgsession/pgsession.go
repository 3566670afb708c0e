// Package pgsession runs throwaway PostgreSQL servers for verification.
//
// A Session owns a freshly initialized cluster in a private temporary
// directory. The server runs with trust authentication and listens only on a
// unix socket inside that directory, so concurrent sessions never compete for
// a TCP port and no credentials are needed. Release stops the server and
// deletes the directory; With wraps Acquire and Release around a callback so
// cleanup happens on every exit path.
//
// Sessions are for serial use by a single caller.
package pgsession

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/open-edge-platform/postgis-composer/internal/utils/shell"
)

const (
	DefaultDatabase = "postgres"
	serverLogName   = "postgres.log"
)

var (
	ErrSessionInit  = errors.New("initializing ephemeral postgres cluster failed")
	ErrSessionStart = errors.New("starting ephemeral postgres server failed")
	ErrQuery        = errors.New("query failed")
	ErrReleased     = errors.New("session already released")

	// execCmd and execQuery are replaced in tests.
	execCmd   = shell.ExecCmd
	execQuery = shell.ExecCmdStdout
)

// Options configures Acquire.
type Options struct {
	// BinDir holds pg_ctl and psql.
	BinDir string
	// TempDir is the parent of the private data directory; empty means os.TempDir().
	TempDir string
	// Env is exported to the server and to every client command.
	Env []string
}

// Session is one running ephemeral PostgreSQL instance.
type Session struct {
	id      string
	pgCtl   string
	psql    string
	dataDir string
	env     []string

	mu         sync.Mutex
	released   bool
	releaseErr error
}

// Acquire initializes and starts a new private server. On error nothing is
// left running and the data directory is gone.
func Acquire(opts Options) (*Session, error) {
	log := logger.Logger()

	if opts.BinDir == "" {
		return nil, fmt.Errorf("postgres bin directory is required")
	}
	s := &Session{
		id:    uuid.NewString(),
		pgCtl: filepath.Join(opts.BinDir, "pg_ctl"),
		psql:  filepath.Join(opts.BinDir, "psql"),
		env:   append([]string(nil), opts.Env...),
	}
	if _, err := os.Stat(s.pgCtl); err != nil {
		return nil, fmt.Errorf("pg_ctl not usable: %w", err)
	}

	dataDir, err := os.MkdirTemp(opts.TempDir, "pgsession-")
	if err != nil {
		return nil, fmt.Errorf("creating session data directory: %w", err)
	}
	s.dataDir = dataDir
	log.Debugf("session %s: data directory %s", s.id, dataDir)

	initCmd := fmt.Sprintf("%s init -s -D %s -o %s",
		shell.Quote(s.pgCtl), shell.Quote(dataDir), shell.Quote("-A trust"))
	if _, err := execCmd(initCmd, "", s.env); err != nil {
		removeErr := os.RemoveAll(dataDir)
		return nil, errors.Join(fmt.Errorf("%w: %w", ErrSessionInit, err), removeErr)
	}

	// An empty -h disables TCP; -k puts the socket next to the data.
	serverOpts := "-h '' -k " + shell.Quote(dataDir)
	startCmd := fmt.Sprintf("%s start -w -s -D %s -l %s -o %s",
		shell.Quote(s.pgCtl), shell.Quote(dataDir),
		shell.Quote(filepath.Join(dataDir, serverLogName)), shell.Quote(serverOpts))
	if _, err := execCmd(startCmd, "", s.env); err != nil {
		startErr := fmt.Errorf("%w: %w", ErrSessionStart, err)
		if tail := s.serverLogTail(20); tail != "" {
			startErr = fmt.Errorf("%w\nserver log:\n%s", startErr, tail)
		}
		// The postmaster may be half up; stopping is best effort.
		_, _ = execCmd(s.stopCmd(), "", s.env)
		removeErr := os.RemoveAll(dataDir)
		return nil, errors.Join(startErr, removeErr)
	}

	log.Infof("ephemeral postgres %s started (socket dir %s)", s.id, dataDir)
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// DataDir is the private cluster directory.
func (s *Session) DataDir() string { return s.dataDir }

// Host is the value clients pass as -h or PGHOST: the socket directory.
func (s *Session) Host() string { return s.dataDir }

// Env returns the client environment that targets this session.
func (s *Session) Env() []string {
	return append(append([]string(nil), s.env...), "PGHOST="+s.Host())
}

// Query runs sql against database db (DefaultDatabase when empty) and
// returns psql's tuples-only output. Server messages on stderr, such as
// NOTICE lines, are kept out of the result. Any SQL error fails the call.
func (s *Session) Query(sql, db string) (string, error) {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return "", ErrReleased
	}

	if db == "" {
		db = DefaultDatabase
	}
	cmd := fmt.Sprintf("%s -X -t -v ON_ERROR_STOP=1 -h %s -c %s %s",
		shell.Quote(s.psql), shell.Quote(s.Host()), shell.Quote(sql), shell.Quote(db))
	out, err := execQuery(cmd, "", s.env)
	if err != nil {
		return out, fmt.Errorf("%w: %q on %s: %w", ErrQuery, sql, db, err)
	}
	return out, nil
}

// Alive reports whether the server still answers pg_ctl status.
func (s *Session) Alive() bool {
	cmd := fmt.Sprintf("%s status -D %s", shell.Quote(s.pgCtl), shell.Quote(s.dataDir))
	_, err := execCmd(cmd, "", s.env)
	return err == nil
}

func (s *Session) stopCmd() string {
	return fmt.Sprintf("%s stop -w -s -D %s -m fast", shell.Quote(s.pgCtl), shell.Quote(s.dataDir))
}

// Release stops the server and removes the data directory. Only the first
// call does work; later calls return the first call's result. Removal is
// attempted even when stopping fails.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return s.releaseErr
	}
	s.released = true

	log := logger.Logger()
	var stopErr error
	if _, err := execCmd(s.stopCmd(), "", s.env); err != nil {
		stopErr = fmt.Errorf("stopping ephemeral postgres %s: %w", s.id, err)
		log.Warnf("%v", stopErr)
	}
	var removeErr error
	if err := os.RemoveAll(s.dataDir); err != nil {
		removeErr = fmt.Errorf("removing %s: %w", s.dataDir, err)
	}

	s.releaseErr = errors.Join(stopErr, removeErr)
	if s.releaseErr == nil {
		log.Infof("ephemeral postgres %s stopped and removed", s.id)
	}
	return s.releaseErr
}

// With acquires a session, runs fn, and always releases it. An error from
// fn is returned first; a release error is joined to it, never replacing it.
func With(opts Options, fn func(*Session) error) (err error) {
	s, err := Acquire(opts)
	if err != nil {
		return err
	}
	defer func() {
		releaseErr := s.Release()
		if releaseErr == nil {
			return
		}
		if err != nil {
			logger.Logger().Warnf("release after failure: %v", releaseErr)
			err = errors.Join(err, releaseErr)
			return
		}
		err = releaseErr
	}()

	return fn(s)
}

func (s *Session) serverLogTail(lines int) string {
	data, err := os.ReadFile(filepath.Join(s.dataDir, serverLogName))
	if err != nil {
		return ""
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) > lines {
		all = all[len(all)-lines:]
	}
	return strings.Join(all, "\n")
}
