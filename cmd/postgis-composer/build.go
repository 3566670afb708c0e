package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/open-edge-platform/postgis-composer/internal/archive"
	"github.com/open-edge-platform/postgis-composer/internal/builder"
	"github.com/open-edge-platform/postgis-composer/internal/config"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/spf13/cobra"
)

// Build command flags
var (
	runCheckPhase bool
	runTestPhase  bool
	buildJobs     int
)

// Replaced in tests.
var runBuild = builder.Build

// createBuildCommand creates the build subcommand
func createBuildCommand() *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build [flags] CONTEXT_FILE SOURCE",
		Short: "Patch, configure, compile and install PostGIS",
		Long: `Build runs the full pipeline for a build context: source patches,
./configure with the dependency flags, make, make install and the
post-install link. With --check the regression suite runs between make and
make install, so a failing suite leaves the prefix untouched. SOURCE is an unpacked source directory or a .tar.gz /
.tar.xz archive, which is extracted into the work directory first.

--check and --test (the library version check after installing) each run
against a throwaway PostgreSQL server.`,
		Args:              cobra.ExactArgs(2),
		RunE:              executeBuild,
		ValidArgsFunction: contextFileCompletion,
	}

	buildCmd.Flags().BoolVar(&runCheckPhase, "check", false, "Run make check before installing")
	buildCmd.Flags().BoolVar(&runTestPhase, "test", false, "Run the PostGIS library version check after installing")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", 0, "Parallel make jobs (default: workers from config)")
	return buildCmd
}

func executeBuild(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	helpers := config.NewConfigHelpers(config.Global())

	bctx, err := loadContext(args[0])
	if err != nil {
		return err
	}

	srcDir, err := resolveSource(args[1], helpers)
	if err != nil {
		return err
	}

	jobs := buildJobs
	if jobs < 1 {
		jobs = helpers.Workers()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	opts := builder.Options{Jobs: jobs, Check: runCheckPhase, Test: runTestPhase}
	if runCheckPhase || runTestPhase {
		if opts.TempDir, err = sessionTempDir(); err != nil {
			return err
		}
	}
	res, err := runBuild(ctx, bctx, srcDir, opts)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	log.Infof("✓ Build complete: %s", bctx.Spec())
	if len(res.Patches) > 0 {
		log.Infof("Patches: %s", strings.Join(res.Patches, ", "))
	}
	if res.LibVersion != "" {
		log.Infof("PostGIS_Lib_Version(): %s", res.LibVersion)
	}
	log.Infof("Manifest: %s", res.ManifestPath)
	return nil
}

// resolveSource returns source as a directory, extracting it into the work
// directory first when it is an archive.
func resolveSource(source string, helpers *config.ConfigHelpers) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("source %s: %w", source, err)
	}
	if info.IsDir() {
		return source, nil
	}

	workDir, err := helpers.CreateWorkDir()
	if err != nil {
		return "", err
	}
	srcDir, err := archive.Extract(source, workDir)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", source, err)
	}
	return srcDir, nil
}
