// Package config loads the deployment descriptor. Values merge from four
// layers, lowest to highest precedence: built-in defaults, a yaml file,
// FHIR_SCHEMA_* environment variables, and explicitly set command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/fhirstack/fhir-schema-deploy/internal/identifier"
	"github.com/fhirstack/fhir-schema-deploy/pkg/deploy"
	"github.com/fhirstack/fhir-schema-deploy/pkg/fhirschema"
)

const (
	// DefaultFileName is looked up in the working directory when no config
	// file is passed explicitly
	DefaultFileName    = "fhir-schema.yaml"
	defaultFileNameAlt = "fhir-schema.yml"

	envPrefix = "FHIR_SCHEMA_"
)

// Config is the deployment descriptor
type Config struct {
	AdminSchema     string   `koanf:"admin_schema"`
	DataSchema      string   `koanf:"data_schema"`
	Tablespace      string   `koanf:"tablespace"`
	SessionVariable string   `koanf:"session_variable"`
	GrantGroup      string   `koanf:"grant_group"`
	ResourceTypes   []string `koanf:"resource_types"`
	ConcurrentTypes bool     `koanf:"concurrent_types"`
	MaxParallel     int64    `koanf:"max_parallel"`
	TemplateDir     string   `koanf:"template_dir"`

	// FileUsed is the config file the values were loaded from, if any
	FileUsed string `koanf:"-"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"admin_schema":     "fhiradmin",
		"data_schema":      "fhirdata",
		"tablespace":       fhirschema.DefaultTablespace,
		"session_variable": fhirschema.DefaultSessionVariable,
		"grant_group":      fhirschema.DefaultGrantGroup,
		"concurrent_types": false,
		"max_parallel":     deploy.DefaultMaxParallel,
	}
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{DefaultFileName, defaultFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load merges the descriptor layers and validates the result. flags may be
// nil; only flags the user actually set are merged, under their snake_case
// names
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	fileUsed := findConfigFile(cfgFile)
	if fileUsed != "" {
		if err := k.Load(file.Provider(fileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", fileUsed, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.FileUsed = fileUsed

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects descriptors the generator or applier would choke on,
// naming the offending key
func (c *Config) Validate() error {
	for key, value := range map[string]string{
		"admin_schema": c.AdminSchema,
		"data_schema":  c.DataSchema,
		"tablespace":   c.Tablespace,
		"grant_group":  c.GrantGroup,
	} {
		if err := identifier.Validate(value); err != nil {
			return fmt.Errorf("config key %s: %w", key, err)
		}
	}
	if c.SessionVariable != "" {
		if err := identifier.Validate(c.SessionVariable); err != nil {
			return fmt.Errorf("config key session_variable: %w", err)
		}
	}
	if c.MaxParallel < 1 {
		return fmt.Errorf("config key max_parallel: must be at least 1, got %d", c.MaxParallel)
	}
	if c.TemplateDir != "" {
		info, err := os.Stat(c.TemplateDir)
		if err != nil {
			return fmt.Errorf("config key template_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("config key template_dir: %s is not a directory", c.TemplateDir)
		}
	}
	return nil
}

// GeneratorOptions translates the descriptor into generator options. The
// template set is built separately because the CLI can inject extra tokens
func (c *Config) GeneratorOptions() []fhirschema.Option {
	opts := []fhirschema.Option{
		fhirschema.WithTablespace(c.Tablespace),
		fhirschema.WithSessionVariable(c.SessionVariable),
		fhirschema.WithGrantGroup(c.GrantGroup),
	}
	if len(c.ResourceTypes) > 0 {
		opts = append(opts, fhirschema.WithResourceTypes(c.ResourceTypes...))
	}
	if c.ConcurrentTypes {
		opts = append(opts, fhirschema.WithConcurrentTypeCreation())
	}
	return opts
}
