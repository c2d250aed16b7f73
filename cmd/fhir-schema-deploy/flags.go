package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-logfmt/logfmt"
	"github.com/spf13/cobra"

	"github.com/fhirstack/fhir-schema-deploy/internal/config"
	"github.com/fhirstack/fhir-schema-deploy/pkg/deploy"
	"github.com/fhirstack/fhir-schema-deploy/pkg/fhirschema"
)

// generatorFlags carries the flags every model-producing subcommand shares.
// The descriptor flags are read back through the flag set by config.Load, so
// only the two values without a config key are kept here
type generatorFlags struct {
	configFile   *string
	templateVars *string
}

func createGeneratorFlags(cmd *cobra.Command) generatorFlags {
	flags := cmd.Flags()

	configFile := flags.StringP("config", "c", "",
		fmt.Sprintf("Config file to load (default: ./%s if present)", config.DefaultFileName))
	templateVars := flags.String("template-var", "",
		"logfmt-encoded extra tokens substituted into procedure templates"+
			" (example: --template-var 'AUDIT_NOTE=phi REGION=us-east')")

	flags.String("admin-schema", "", "Schema holding the tenant session variable and other administrative objects")
	flags.String("data-schema", "", "Schema the resource tables, types, and procedures are created in")
	flags.String("tablespace", "", "Tablespace every table is created in")
	flags.String("session-variable", "", "Session variable gating row access. Pass an empty value to disable access control")
	flags.String("grant-group", "", "Group granted DML and EXECUTE privileges on the generated objects")
	flags.StringSlice("resource-types", nil, "Resource types to generate table groups for (default: the full catalog)")
	flags.Bool("concurrent-types", false, "Let row types deploy concurrently instead of chained one per wave")
	flags.Int64("max-parallel", deploy.DefaultMaxParallel, "Maximum objects applied concurrently within a wave")
	flags.String("template-dir", "", "Directory of <procedure>.sql files overriding the embedded templates")

	return generatorFlags{
		configFile:   configFile,
		templateVars: templateVars,
	}
}

func (f generatorFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(*f.configFile, cmd.Flags())
}

// buildGenerator assembles the schema generator from the resolved descriptor
// plus any template overrides passed on the command line
func buildGenerator(cfg *config.Config, templateVars string) (*fhirschema.Generator, error) {
	extraTokens, err := logFmtToMap(templateVars)
	if err != nil {
		return nil, fmt.Errorf("parsing template-var: %w", err)
	}

	opts := cfg.GeneratorOptions()
	if cfg.TemplateDir != "" {
		opts = append(opts, fhirschema.WithProcedureTemplates(
			fhirschema.NewTemplateSet(os.DirFS(cfg.TemplateDir), extraTokens)))
	} else if len(extraTokens) > 0 {
		opts = append(opts, fhirschema.WithProcedureTemplates(fhirschema.DefaultTemplates(extraTokens)))
	}

	return fhirschema.New(cfg.AdminSchema, cfg.DataSchema, opts...)
}

// logFmtToMap parses all LogFmt key/value pairs from the provided string into a
// map.
//
// All records are scanned. If a duplicate key is found, an error is returned.
func logFmtToMap(logFmt string) (map[string]string, error) {
	logMap := make(map[string]string)
	decoder := logfmt.NewDecoder(strings.NewReader(logFmt))
	for decoder.ScanRecord() {
		for decoder.ScanKeyval() {
			if _, ok := logMap[string(decoder.Key())]; ok {
				return nil, fmt.Errorf("duplicate key %q in logfmt", string(decoder.Key()))
			}
			logMap[string(decoder.Key())] = string(decoder.Value())
		}
	}
	if decoder.Err() != nil {
		return nil, decoder.Err()
	}
	return logMap, nil
}
