package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fhirstack/fhir-schema-deploy/internal/util"
	"github.com/fhirstack/fhir-schema-deploy/pkg/deploy"
	"github.com/fhirstack/fhir-schema-deploy/pkg/log"
	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

func buildExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the full deployment as a SQL script",
	}

	genFlags := createGeneratorFlags(cmd)
	outputPath := cmd.Flags().StringP("output", "o", "", "File to write the script to instead of stdout")
	skipConfirmPrompt := cmd.Flags().Bool("skip-confirm-prompt", false,
		"Skips prompt asking for user to confirm before overwriting the output file")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := genFlags.loadConfig(cmd)
		if err != nil {
			return err
		}

		cmd.SilenceUsage = true

		generator, err := buildGenerator(cfg, *genFlags.templateVars)
		if err != nil {
			return err
		}
		m, err := generator.Build()
		if err != nil {
			return err
		}

		if *outputPath == "" {
			return writeScript(cmd.Context(), m, cmd.OutOrStdout())
		}

		if _, err := os.Stat(*outputPath); err == nil && !*skipConfirmPrompt {
			if err := mustContinuePrompt(fmt.Sprintf("Overwrite %s?", *outputPath)); err != nil {
				return err
			}
		}
		if err := exportToFile(cmd.Context(), m, *outputPath); err != nil {
			return err
		}
		cmdPrintf(cmd, "Script written to %s\n", *outputPath)
		return nil
	}

	return cmd
}

// writeScript renders the DDL for every object of m to w. Application is
// strictly serial so the script comes out in plan order every run, and run
// progress is suppressed so the DDL is the only output
func writeScript(ctx context.Context, m *model.PhysicalDataModel, w io.Writer) error {
	applier := deploy.NewApplier(deploy.WithMaxParallel(1), deploy.WithLogger(log.QuietLogger()))
	return applier.Apply(ctx, m, deploy.NewScriptTarget(w))
}

func exportToFile(ctx context.Context, m *model.PhysicalDataModel, path string) (retErr error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	// a partial script must not be left behind looking deployable
	defer util.DoOnErrOrPanic(&retErr, func() {
		_ = os.Remove(path)
	})
	defer func() {
		if closeErr := f.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()

	return writeScript(ctx, m, f)
}
