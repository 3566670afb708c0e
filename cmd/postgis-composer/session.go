package main

import (
	"fmt"
	"strings"

	"github.com/open-edge-platform/postgis-composer/internal/pgsession"
	"github.com/open-edge-platform/postgis-composer/internal/verify"
	"github.com/spf13/cobra"
)

// Session command flags
var (
	sessionSQL []string
	sessionDB  string
)

// createSessionCommand creates the session subcommand
func createSessionCommand() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session [flags] CONTEXT_FILE --sql STATEMENT...",
		Short: "Run SQL against a throwaway PostgreSQL server",
		Long: `Start a private PostgreSQL server from the context's postgresql
dependency, run each --sql statement in order, print the results and
discard the server. The first failing statement stops the run.`,
		Args:              cobra.ExactArgs(1),
		RunE:              executeSession,
		ValidArgsFunction: contextFileCompletion,
	}

	sessionCmd.Flags().StringArrayVar(&sessionSQL, "sql", nil, "SQL statement to run (repeatable)")
	sessionCmd.Flags().StringVar(&sessionDB, "db", pgsession.DefaultDatabase, "Database to connect to")
	_ = sessionCmd.MarkFlagRequired("sql")
	return sessionCmd
}

func executeSession(cmd *cobra.Command, args []string) error {
	bctx, err := loadContext(args[0])
	if err != nil {
		return err
	}
	tempDir, err := sessionTempDir()
	if err != nil {
		return err
	}
	opts, err := verify.SessionOptions(bctx, tempDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return pgsession.With(opts, func(s *pgsession.Session) error {
		for _, stmt := range sessionSQL {
			res, err := s.Query(stmt, sessionDB)
			if err != nil {
				return err
			}
			if trimmed := strings.TrimSpace(res); trimmed != "" {
				fmt.Fprintln(out, trimmed)
			}
		}
		return nil
	})
}
