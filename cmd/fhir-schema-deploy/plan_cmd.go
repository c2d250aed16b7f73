package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/fhirstack/fhir-schema-deploy/pkg/deploy"
)

func buildPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the wave-partitioned deployment plan for the configured schema",
	}

	genFlags := createGeneratorFlags(cmd)
	showConfig := cmd.Flags().Bool("show-config", false, "Print the resolved configuration before the plan")
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
		plan, err := deploy.BuildPlan(m)
		if err != nil {
			return err
		}

		if *showConfig {
			cmdPrintf(cmd, "\n%s\n", header("Resolved configuration"))
			cmdPrintf(cmd, "%# v\n", pretty.Formatter(cfg))
		}
		cmdPrintf(cmd, "\n%s\n", header("Deployment plan"))
		cmdPrintln(cmd, planToPrettyS(plan))
		cmdPrintf(cmd, "\n%d objects in %d waves, model fingerprint %s\n",
			plan.StepCount(), len(plan.Waves), plan.Fingerprint)
		return nil
	}

	return cmd
}

func planToPrettyS(plan deploy.Plan) string {
	// We are going to number each wave. To do that, we need to find how many
	// characters are in the largest wave number, so we can zero-pad the
	// smaller ones and keep the blocks aligned
	// E.g.
	// Wave 01 (5 objects)
	// ....
	// Wave 14 (4 objects)
	waveNumPadding := len(strconv.Itoa(len(plan.Waves)))
	fmtString := fmt.Sprintf("Wave %%0%dd (%%d objects)", waveNumPadding)

	var waveStrs []string
	for i, wave := range plan.Waves {
		sb := strings.Builder{}
		sb.WriteString(fmt.Sprintf(fmtString, getDisplayableWaveIdx(i), len(wave)))
		for _, step := range wave {
			sb.WriteString(fmt.Sprintf("\n\t%-16s %s version %d", step.Kind, step.Name, step.Version))
		}
		waveStrs = append(waveStrs, sb.String())
	}
	return strings.Join(waveStrs, "\n\n")
}

func getDisplayableWaveIdx(i int) int {
	return i + 1
}
