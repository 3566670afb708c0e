package main

import (
	"fmt"

	"github.com/open-edge-platform/postgis-composer/internal/patch"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/spf13/cobra"
)

// createPatchCommand creates the patch subcommand
func createPatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "patch [flags] CONTEXT_FILE SRC_DIR",
		Short:             "Apply the version-conditioned source patches to an unpacked tree",
		Args:              cobra.ExactArgs(2),
		RunE:              executePatch,
		ValidArgsFunction: contextFileCompletion,
	}
}

func executePatch(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	bctx, err := loadContext(args[0])
	if err != nil {
		return err
	}

	applied, err := patch.Apply(args[1], bctx, patch.Rules())
	if err != nil {
		return fmt.Errorf("patching %s: %w", args[1], err)
	}
	if len(applied) == 0 {
		log.Infof("no patches apply to %s", bctx.Spec())
		return nil
	}
	for _, name := range applied {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
