package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/open-edge-platform/postgis-composer/internal/archive"
	"github.com/open-edge-platform/postgis-composer/internal/config"
	"github.com/open-edge-platform/postgis-composer/internal/pkgfetcher"
	"github.com/open-edge-platform/postgis-composer/internal/recipe"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
	"github.com/spf13/cobra"
)

// Fetch command flags
var (
	fetchVersions []string
	fetchAll      bool
	fetchKeyring  string
	fetchSigExt   string
	fetchExtract  bool
)

// Replaced in tests.
var fetchArchives = pkgfetcher.FetchArchives

// createFetchCommand creates the fetch subcommand
func createFetchCommand() *cobra.Command {
	fetchCmd := &cobra.Command{
		Use:   "fetch [flags]",
		Short: "Download and verify PostGIS source archives into the cache",
		Long: `Download source archives into the cache directory and verify each
against the sha256 recorded in the recipe. Without --version or --all the
preferred (newest) release is fetched. With --keyring the detached
signature next to each archive is fetched and checked as well.`,
		Args: cobra.NoArgs,
		RunE: executeFetch,
	}

	fetchCmd.Flags().StringSliceVar(&fetchVersions, "version", nil, "Release to fetch (repeatable)")
	fetchCmd.Flags().BoolVar(&fetchAll, "all", false, "Fetch every known release")
	fetchCmd.Flags().StringVar(&fetchKeyring, "keyring", "", "OpenPGP public keyring used to verify detached signatures")
	fetchCmd.Flags().StringVar(&fetchSigExt, "signature-ext", ".asc", "Suffix of the detached signature URL")
	fetchCmd.Flags().BoolVar(&fetchExtract, "extract", false, "Extract fetched archives into the work directory")
	fetchCmd.MarkFlagsMutuallyExclusive("version", "all")
	return fetchCmd
}

// selectVersions resolves the --version/--all flags against d.
func selectVersions(d *recipe.Descriptor, requested []string, all bool) ([]string, error) {
	if all {
		versions := make([]string, 0, len(d.Versions))
		for _, v := range d.SortedVersions() {
			versions = append(versions, v.Version)
		}
		return versions, nil
	}
	if len(requested) == 0 {
		return []string{d.Preferred().Version}, nil
	}
	for _, v := range requested {
		if _, err := d.Lookup(v); err != nil {
			return nil, err
		}
	}
	return requested, nil
}

func executeFetch(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	helpers := config.NewConfigHelpers(config.Global())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d := newDescriptor()
	versions, err := selectVersions(d, fetchVersions, fetchAll)
	if err != nil {
		return err
	}
	reqs, err := pkgfetcher.RequestsFor(d, versions)
	if err != nil {
		return err
	}

	cacheDir, err := helpers.CreateCacheDir()
	if err != nil {
		return err
	}
	paths, err := fetchArchives(ctx, reqs, cacheDir, helpers.Workers())
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	logger.ReportPath = cacheDir
	if report, err := logger.WriteListFetchedToFile(); err != nil {
		log.Warnf("writing fetch report: %v", err)
	} else {
		log.Debugf("fetch report written to %s", report)
	}

	if fetchKeyring != "" {
		sigs, err := pkgfetcher.FetchSignatures(ctx, reqs, cacheDir, fetchSigExt)
		if err != nil {
			return err
		}
		for i, p := range paths {
			if err := pkgfetcher.VerifySignature(p, sigs[i], fetchKeyring); err != nil {
				return err
			}
		}
	}

	out := cmd.OutOrStdout()
	for _, p := range paths {
		if !fetchExtract {
			fmt.Fprintln(out, p)
			continue
		}
		workDir, err := helpers.CreateWorkDir()
		if err != nil {
			return err
		}
		srcDir, err := archive.Extract(p, workDir)
		if err != nil {
			return fmt.Errorf("extracting %s: %w", filepath.Base(p), err)
		}
		fmt.Fprintln(out, srcDir)
	}
	return nil
}
