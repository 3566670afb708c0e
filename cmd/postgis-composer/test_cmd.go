package main

import (
	"fmt"

	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/open-edge-platform/postgis-composer/internal/verify"
	"github.com/spf13/cobra"
)

// Replaced in tests.
var runLibVersionCheck = verify.Run

// createTestCommand creates the test subcommand
func createTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test [flags] CONTEXT_FILE",
		Short: "Check that an installed PostGIS loads into PostgreSQL",
		Long: `Start a throwaway PostgreSQL server from the context's postgresql
dependency, run CREATE EXTENSION postgis and check that
PostGIS_Lib_Version() reports the context's version.`,
		Args:              cobra.ExactArgs(1),
		RunE:              executeTest,
		ValidArgsFunction: contextFileCompletion,
	}
}

func executeTest(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
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
	got, err := runLibVersionCheck(opts, verify.PostgisLibVersion(bctx.Version()))
	if err != nil {
		return err
	}
	log.Infof("✓ %s is usable from PostgreSQL", bctx.Spec())
	fmt.Fprintln(cmd.OutOrStdout(), got)
	return nil
}
