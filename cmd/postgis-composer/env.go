package main

import (
	"fmt"
	"strings"

	"github.com/open-edge-platform/postgis-composer/internal/configure"
	"github.com/open-edge-platform/postgis-composer/internal/utils/shell"
	"github.com/spf13/cobra"
)

var runEnv bool

// createEnvCommand creates the env subcommand
func createEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the build (or --run) environment as export lines",
		Args:  cobra.NoArgs,
		RunE:  executeEnv,
	}
	cmd.Flags().BoolVar(&runEnv, "run", false, "Print the run environment instead of the build environment")
	return cmd
}

func executeEnv(cmd *cobra.Command, args []string) error {
	vars := configure.BuildEnv()
	if runEnv {
		vars = configure.RunEnv()
	}
	for _, kv := range shell.EnvList(vars) {
		k, v, _ := strings.Cut(kv, "=")
		fmt.Fprintf(cmd.OutOrStdout(), "export %s=%s\n", k, shell.Quote(v))
	}
	return nil
}
