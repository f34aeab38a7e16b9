package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// BuildConfig holds the inputs shared by every command that builds a route
// table, after merging defaults, the config file and flags.
type BuildConfig struct {
	Input        string
	HandlersDir  string
	BaseDir      string
	Validate     bool
	StubHandlers bool
	StubSecurity bool
	Concurrency  int
	ConfigPath   string
	Verbose      bool
}

func defaultBuildConfig() BuildConfig {
	return BuildConfig{Validate: true}
}

// fileConfig is the config file schema. Keys are matched after
// normalizeKey, so "dry-run", "dry_run" and "dryRun" are the same key.
type fileConfig struct {
	Input        *string `mapstructure:"input"`
	Handlers     *string `mapstructure:"handlers"`
	BaseDir      *string `mapstructure:"basedir"`
	Validate     *bool   `mapstructure:"validate"`
	StubHandlers *bool   `mapstructure:"stubhandlers"`
	StubSecurity *bool   `mapstructure:"stubsecurity"`
	Concurrency  *int    `mapstructure:"concurrency"`
	Format       *string `mapstructure:"format"`
	Out          *string `mapstructure:"out"`
	DryRun       *bool   `mapstructure:"dryrun"`
	Force        *bool   `mapstructure:"force"`
	Verbose      *bool   `mapstructure:"verbose"`
}

func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}
	normalized := make(map[string]any, len(raw))
	original := make(map[string]string, len(raw))
	for key, value := range raw {
		k := normalizeKey(key)
		normalized[k] = value
		original[k] = key
	}

	var fc fileConfig
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Metadata:         &md,
		Result:           &fc,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(normalized); err != nil {
		return nil, newUsageError(fmt.Sprintf("config file %q: %v", path, err))
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return nil, newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, original[md.Unused[0]]))
	}
	return &fc, nil
}

func (fc *fileConfig) applyBuild(cfg *BuildConfig) {
	setString(&cfg.Input, fc.Input)
	setString(&cfg.HandlersDir, fc.Handlers)
	setString(&cfg.BaseDir, fc.BaseDir)
	setBool(&cfg.Validate, fc.Validate)
	setBool(&cfg.StubHandlers, fc.StubHandlers)
	setBool(&cfg.StubSecurity, fc.StubSecurity)
	setBool(&cfg.Verbose, fc.Verbose)
	if fc.Concurrency != nil {
		cfg.Concurrency = *fc.Concurrency
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func addBuildFlags(flags *pflag.FlagSet) {
	flags.String("input", "", "Path or URL to the Swagger 2.0 document")
	flags.String("handlers", "", "Directory of handler modules mirroring the API paths")
	flags.String("basedir", "", "Directory x-handler values are relative to (defaults to the document's directory)")
	flags.Bool("validate", true, "Check the document structure before building")
	flags.Bool("stub-handlers", false, "Answer 501 for operations without a handler (otherwise they fail with --handlers, or are left out of the table without it)")
	flags.Bool("stub-security", false, "Stub every declared security scheme so secured operations can be listed")
	flags.Int("concurrency", 0, "Maximum concurrent handler lookups (0 = GOMAXPROCS)")
}

// applyBuildFlagOverrides copies the flags the user actually set, so config
// file values survive flag defaults.
func applyBuildFlagOverrides(flags *pflag.FlagSet, cfg *BuildConfig) error {
	for _, s := range []struct {
		name string
		dst  *string
	}{
		{"input", &cfg.Input},
		{"handlers", &cfg.HandlersDir},
		{"basedir", &cfg.BaseDir},
	} {
		if !flags.Changed(s.name) {
			continue
		}
		value, err := flags.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = strings.TrimSpace(value)
	}
	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{"validate", &cfg.Validate},
		{"stub-handlers", &cfg.StubHandlers},
		{"stub-security", &cfg.StubSecurity},
		{"verbose", &cfg.Verbose},
	} {
		if !flags.Changed(b.name) {
			continue
		}
		value, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.dst = value
	}
	if flags.Changed("concurrency") {
		value, err := flags.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = value
	}
	return nil
}

func (c *BuildConfig) validate(command string) error {
	c.Input = strings.TrimSpace(c.Input)
	if c.Input == "" {
		return newUsageError(fmt.Sprintf("%s: --input is required (set via flag or config file)", command))
	}
	if c.Concurrency < 0 {
		return newUsageError(fmt.Sprintf("%s: --concurrency must not be negative", command))
	}
	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}
