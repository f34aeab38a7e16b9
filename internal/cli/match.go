package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swaggerroutes/internal/manifest"
	"github.com/mark3labs/swaggerroutes/internal/routeerr"
	"github.com/mark3labs/swaggerroutes/internal/routes"
)

// MatchConfig captures the inputs of the match command.
type MatchConfig struct {
	BuildConfig
	Path      string
	Method    string
	MediaType string
	Format    string
}

var matchRunner = runMatch

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Find the route serving a request",
		Long:  "Build the route table and report the route a request with the given path, method and media type would reach.",
		Example: strings.TrimSpace(`  swaggerroutes match --input api/swagger.yaml --stub-handlers --path /pets/{id} --method get
  swaggerroutes match --input api/swagger.yaml --stub-handlers --path /pets --method post --media-type application/json`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveMatchConfig(cmd)
			if err != nil {
				return err
			}
			return matchRunner(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	addBuildFlags(flags)
	flags.String("path", "", "Route path relative to the base path, e.g. /pets/{id}")
	flags.String("method", "get", "HTTP method")
	flags.String("media-type", "", "Request media type to check against produces and consumes")
	flags.String("format", manifest.FormatYAML, "Output format (yaml|json)")

	return cmd
}

func resolveMatchConfig(cmd *cobra.Command) (*MatchConfig, error) {
	cfg := MatchConfig{BuildConfig: defaultBuildConfig(), Method: "get", Format: manifest.FormatYAML}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		fc, err := loadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		fc.applyBuild(&cfg.BuildConfig)
	}

	if err := applyMatchFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.BuildConfig.validate("match"); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, newUsageError("match: --path is required")
	}
	switch cfg.Format {
	case "yml":
		cfg.Format = manifest.FormatYAML
	case manifest.FormatYAML, manifest.FormatJSON:
	default:
		return nil, newUsageError(fmt.Sprintf("match: unsupported --format %q (allowed: yaml, json)", cfg.Format))
	}
	return &cfg, nil
}

func applyMatchFlagOverrides(flags *pflag.FlagSet, cfg *MatchConfig) error {
	if err := applyBuildFlagOverrides(flags, &cfg.BuildConfig); err != nil {
		return err
	}
	for _, s := range []struct {
		name string
		dst  *string
	}{
		{"path", &cfg.Path},
		{"method", &cfg.Method},
		{"media-type", &cfg.MediaType},
		{"format", &cfg.Format},
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
	cfg.Format = strings.ToLower(cfg.Format)
	return nil
}

func runMatch(ctx context.Context, cfg *MatchConfig, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, cfg.Verbose)
	_, table, err := buildTable(ctx, &cfg.BuildConfig, logger)
	if err != nil {
		return friendlyError(err)
	}

	route, err := table.Match(cfg.Path, cfg.Method, cfg.MediaType)
	switch {
	case errors.Is(err, routes.ErrRouteNotFound):
		return newUsageError(fmt.Sprintf("match: no route for %s %s", strings.ToUpper(cfg.Method), cfg.Path))
	case errors.Is(err, routeerr.ErrMediaType):
		return usageError{msg: fmt.Sprintf("match: %v", err), cause: err}
	case err != nil:
		return err
	}

	entry := manifest.FromRoute(route)
	var data []byte
	if cfg.Format == manifest.FormatJSON {
		data, err = json.MarshalIndent(entry, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(entry)
	}
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}
