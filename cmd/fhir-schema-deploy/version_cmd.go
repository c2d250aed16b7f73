package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func buildVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Get the version of fhir-schema-deploy",
	}
	cmd.RunE = func(_ *cobra.Command, _ []string) error {
		buildInfo, ok := debug.ReadBuildInfo()
		if !ok {
			return fmt.Errorf("build information not available")
		}
		cmdPrintf(cmd, "version=%s\n", buildInfo.Main.Version)
		for _, setting := range buildInfo.Settings {
			if setting.Key == "vcs.revision" {
				cmdPrintf(cmd, "revision=%s\n", setting.Value)
			}
		}

		return nil
	}
	return cmd
}
