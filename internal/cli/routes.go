package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/swaggerroutes/internal/manifest"
	"github.com/mark3labs/swaggerroutes/internal/routes"
	"github.com/mark3labs/swaggerroutes/internal/spec"
)

// RoutesConfig captures all inputs of the routes command.
type RoutesConfig struct {
	BuildConfig
	Format string
	Out    string
	DryRun bool
	Force  bool
}

const formatTable = "table"

var routesRunner = runRoutes

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Build the route table of a Swagger 2.0 document",
		Long: "Build the route table of a Swagger 2.0 document and print it, or write it as a manifest. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  swaggerroutes routes --input api/swagger.yaml --handlers api/handlers
  swaggerroutes routes --input api/swagger.yaml --stub-handlers --stub-security --format json
  swaggerroutes --config swaggerroutes.yaml routes --out ./build --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveRoutesConfig(cmd)
			if err != nil {
				return err
			}
			return routesRunner(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	addBuildFlags(flags)
	flags.String("format", "", "Output format (table|yaml|json); table when printing, yaml when writing")
	flags.String("out", "", "Directory to write the manifest to; prints to stdout when omitted")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite an existing manifest")

	return cmd
}

func resolveRoutesConfig(cmd *cobra.Command) (*RoutesConfig, error) {
	cfg := RoutesConfig{BuildConfig: defaultBuildConfig()}

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
		setString(&cfg.Format, fc.Format)
		setString(&cfg.Out, fc.Out)
		setBool(&cfg.DryRun, fc.DryRun)
		setBool(&cfg.Force, fc.Force)
	}

	if err := applyRoutesFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	cfg.Out = strings.TrimSpace(cfg.Out)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyRoutesFlagOverrides(flags *pflag.FlagSet, cfg *RoutesConfig) error {
	if err := applyBuildFlagOverrides(flags, &cfg.BuildConfig); err != nil {
		return err
	}
	if flags.Changed("format") {
		value, err := flags.GetString("format")
		if err != nil {
			return err
		}
		cfg.Format = value
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = value
	}
	if flags.Changed("dry-run") {
		value, err := flags.GetBool("dry-run")
		if err != nil {
			return err
		}
		cfg.DryRun = value
	}
	if flags.Changed("force") {
		value, err := flags.GetBool("force")
		if err != nil {
			return err
		}
		cfg.Force = value
	}
	return nil
}

func (c *RoutesConfig) validate() error {
	if err := c.BuildConfig.validate("routes"); err != nil {
		return err
	}
	switch c.Format {
	case "":
		if c.Out == "" {
			c.Format = formatTable
		} else {
			c.Format = manifest.FormatYAML
		}
	case "yml":
		c.Format = manifest.FormatYAML
	case manifest.FormatYAML, manifest.FormatJSON:
	case formatTable:
		if c.Out != "" {
			return newUsageError("routes: --format table cannot be written with --out (use yaml or json)")
		}
	default:
		return newUsageError(fmt.Sprintf("routes: unsupported --format %q (allowed: table, yaml, json)", c.Format))
	}
	if c.DryRun && c.Out == "" {
		return newUsageError("routes: --dry-run needs --out")
	}
	return nil
}

func runRoutes(ctx context.Context, cfg *RoutesConfig, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, cfg.Verbose)
	doc, table, err := buildTable(ctx, &cfg.BuildConfig, logger)
	if err != nil {
		return friendlyError(err)
	}

	if cfg.Format == formatTable {
		return printTable(stdout, table)
	}

	m := manifest.FromTable(table, documentInfo(doc))
	if cfg.Out == "" {
		data, err := manifest.Render(m, cfg.Format)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}
	res, err := manifest.Emit(ctx, m, manifest.Options{
		OutDir: cfg.Out,
		Format: cfg.Format,
		Force:  cfg.Force,
		DryRun: cfg.DryRun,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	if cfg.DryRun {
		paths := make([]string, 0, len(res.Planned))
		for _, p := range res.Planned {
			paths = append(paths, p.RelPath)
		}
		printPlan(stdout, absOut, paths)
		return nil
	}
	fmt.Fprintf(stdout, "Wrote %d routes to %s\n", len(m.Routes), absOut)
	return nil
}

func documentInfo(doc *spec.Document) manifest.Info {
	return manifest.Info{
		Title:   doc.API.Info.Title,
		Version: doc.API.Info.Version,
		Source:  doc.Location,
	}
}

func printTable(w io.Writer, table *routes.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH\tNAME\tHANDLER\tSECURITY")
	for i := range table.Routes {
		e := manifest.FromRoute(&table.Routes[i])
		sec := "-"
		if len(e.Security) > 0 {
			sec = strings.Join(slices.Sorted(maps.Keys(e.Security)), ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", strings.ToUpper(e.Method), table.BasePath+e.Path, e.Name, e.Handler, sec)
	}
	return tw.Flush()
}

func printPlan(w io.Writer, outDir string, relPaths []string) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "already exists") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}
