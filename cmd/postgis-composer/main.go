package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/open-edge-platform/postgis-composer/internal/buildctx"
	"github.com/open-edge-platform/postgis-composer/internal/config"
	"github.com/open-edge-platform/postgis-composer/internal/recipe"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Global flags
var (
	configFile string
	logLevel   string
	verbose    bool
)

// Replaced in tests.
var newDescriptor = recipe.Postgis

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := createRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Logger().Errorf("%v", err)
		logger.Sync()
		stop()
		os.Exit(1)
	}
	logger.Sync()
}

// createRootCommand creates and configures the root command with all subcommands
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "postgis-composer",
		Short: "Build and verify the PostGIS spatial extension for PostgreSQL",
		Long: `postgis-composer carries the PostGIS build recipe: known releases and
their checksums, variants, dependency declarations, configure flags, source
patches and the functional checks run against a throwaway PostgreSQL server.

A build context file names the PostGIS version, the install prefix and the
prefix of every dependency. Dependencies themselves are not built here.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Global configuration file (default "+config.DefaultConfigFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.AddCommand(createVersionsCommand())
	rootCmd.AddCommand(createValidateCommand())
	rootCmd.AddCommand(createFetchCommand())
	rootCmd.AddCommand(createConfigureArgsCommand())
	rootCmd.AddCommand(createEnvCommand())
	rootCmd.AddCommand(createPatchCommand())
	rootCmd.AddCommand(createBuildCommand())
	rootCmd.AddCommand(createTestCommand())
	rootCmd.AddCommand(createSessionCommand())

	attachLoggingHooks(rootCmd)
	return rootCmd
}

// attachLoggingHooks installs the config and logger setup on every subcommand.
func attachLoggingHooks(root *cobra.Command) {
	for _, sub := range root.Commands() {
		sub.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
			return setupEnvironment(cmd)
		}
	}
}

// setupEnvironment loads the global configuration and initializes logging.
// An explicit --log-level or --verbose overrides the configured level.
func setupEnvironment(cmd *cobra.Command) error {
	cfg, err := config.LoadGlobalConfig(configFile)
	if err != nil {
		return err
	}
	if requested := resolveRequestedLogLevel(cmd); requested != "" {
		cfg.Logging.Level = requested
	}
	config.SetGlobal(cfg)

	if _, err := logger.Init(cfg.Logging.Level); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.Logger().Debugf("config: workers=%d cache=%s work=%s", cfg.Workers, cfg.CacheDir, cfg.WorkDir)
	return nil
}

// resolveRequestedLogLevel returns the level asked for on the command line,
// or "" when neither --log-level nor --verbose was given.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if flagTrue(cmd.Flags(), "verbose") {
		return "debug"
	}
	return ""
}

func flagTrue(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed && f.Value.String() == "true"
}

// loadContext reads a build context file against the PostGIS recipe.
func loadContext(path string) (*buildctx.Context, error) {
	bctx, err := buildctx.Load(path, newDescriptor())
	if err != nil {
		return nil, fmt.Errorf("build context validation failed: %w", err)
	}
	return bctx, nil
}

// sessionTempDir returns the parent directory for throwaway servers, creating it.
func sessionTempDir() (string, error) {
	return config.NewConfigHelpers(config.Global()).CreateTempDir("postgis-composer")
}

// contextFileCompletion offers YAML files for build context arguments.
func contextFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}
	return []string{"yml", "yaml"}, cobra.ShellCompDirectiveFilterFileExt
}
