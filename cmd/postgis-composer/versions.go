package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showDeps bool

// createVersionsCommand creates the versions subcommand
func createVersionsCommand() *cobra.Command {
	versionsCmd := &cobra.Command{
		Use:   "versions",
		Short: "List known PostGIS releases and their checksums",
		Args:  cobra.NoArgs,
		RunE:  executeVersions,
	}
	versionsCmd.Flags().BoolVar(&showDeps, "deps", false, "Also list variants and dependencies")
	return versionsCmd
}

func executeVersions(cmd *cobra.Command, args []string) error {
	d := newDescriptor()
	if err := d.Validate(); err != nil {
		return fmt.Errorf("recipe is invalid: %w", err)
	}
	out := cmd.OutOrStdout()
	preferred := d.Preferred().Version

	for _, v := range d.SortedVersions() {
		marker := " "
		if v.Version == preferred {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-8s sha256:%s\n", marker, v.Version, v.SHA256)
	}

	if !showDeps {
		return nil
	}
	fmt.Fprintln(out, "\nVariants:")
	for _, v := range d.Variants {
		fmt.Fprintf(out, "  %s (default %v): %s\n", v.Name, v.Default, v.Description)
	}
	fmt.Fprintln(out, "\nDependencies:")
	for _, dep := range d.Dependencies {
		types := make([]string, 0, len(dep.PhaseTypes()))
		for _, t := range dep.PhaseTypes() {
			types = append(types, string(t))
		}
		line := "  " + dep.Name
		if dep.Range != "" {
			line += "@" + dep.Range
		}
		line += " [" + strings.Join(types, ",") + "]"
		if dep.When != "" {
			line += " when +" + dep.When
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
