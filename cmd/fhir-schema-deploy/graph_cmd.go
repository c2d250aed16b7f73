package main

import (
	"github.com/spf13/cobra"
)

func buildGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Emit the model's dependency graph in DOT format (render with graphviz)",
	}

	genFlags := createGeneratorFlags(cmd)
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
		return m.EncodeDOT(cmd.OutOrStdout())
	}

	return cmd
}
