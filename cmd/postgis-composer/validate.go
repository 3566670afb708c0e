package main

import (
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/spf13/cobra"
)

// createValidateCommand creates the validate subcommand
func createValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [flags] CONTEXT_FILE",
		Short: "Validate a build context file",
		Long: `Validate a build context file against the schema and the PostGIS recipe
without building anything. The version must be a known release, variants
must exist and every required dependency must have a prefix.`,
		Args:              cobra.ExactArgs(1),
		RunE:              executeValidate,
		ValidArgsFunction: contextFileCompletion,
	}
	return validateCmd
}

// executeValidate handles the validate command logic
func executeValidate(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	contextFile := args[0]

	log.Infof("validating build context: %s", contextFile)
	bctx, err := loadContext(contextFile)
	if err != nil {
		return err
	}

	log.Infof("✓ Build context validation successful for %s", contextFile)
	log.Infof("Spec: %s", bctx.Spec())
	log.Infof("Prefix: %s", bctx.InstallPrefix())

	if verbose {
		log.Infof("Dependencies:")
		for _, name := range bctx.DepNames() {
			prefix, _ := bctx.DepPrefix(name)
			if v, ok := bctx.DepVersion(name); ok {
				log.Infof("  - %s@%s: %s", name, v, prefix)
			} else {
				log.Infof("  - %s: %s", name, prefix)
			}
		}
	}
	return nil
}
