package main

import (
	"fmt"
	"strings"

	"github.com/open-edge-platform/postgis-composer/internal/configure"
	"github.com/open-edge-platform/postgis-composer/internal/utils/shell"
	"github.com/spf13/cobra"
)

var shellQuoted bool

// createConfigureArgsCommand creates the configure-args subcommand
func createConfigureArgsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "configure-args [flags] CONTEXT_FILE",
		Short:             "Print the ./configure flags for a build context",
		Args:              cobra.ExactArgs(1),
		RunE:              executeConfigureArgs,
		ValidArgsFunction: contextFileCompletion,
	}
	cmd.Flags().BoolVar(&shellQuoted, "shell", false, "Print a single quoted line instead of one flag per line")
	return cmd
}

func executeConfigureArgs(cmd *cobra.Command, args []string) error {
	bctx, err := loadContext(args[0])
	if err != nil {
		return err
	}
	flags, err := configure.Args(bctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if shellQuoted {
		quoted := make([]string, len(flags))
		for i, f := range flags {
			quoted[i] = shell.Quote(f)
		}
		fmt.Fprintln(out, strings.Join(quoted, " "))
		return nil
	}
	for _, f := range flags {
		fmt.Fprintln(out, f)
	}
	return nil
}
