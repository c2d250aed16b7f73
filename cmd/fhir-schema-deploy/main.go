package main

import (
	"os"

	"github.com/spf13/cobra"
)

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fhir-schema-deploy",
		Short: "Generate the multi-tenant FHIR schema model and render its deployment plan, DDL script, or dependency graph",
	}
	cmd.AddCommand(buildPlanCmd())
	cmd.AddCommand(buildExportCmd())
	cmd.AddCommand(buildGraphCmd())
	cmd.AddCommand(buildVersionCmd())
	return cmd
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
