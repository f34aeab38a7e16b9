package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const defaultConfigName = "swaggerroutes.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample swaggerroutes configuration file",
		Long:  "Scaffold a commented swaggerroutes configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("out", defaultConfigName, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig, stdout io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigName
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML documents every key loadConfigFile accepts.
const sampleConfigYAML = `# swaggerroutes configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Path or URL to the Swagger 2.0 document (http/https or local file).
# input: ./swagger.yaml

# Directory of handler modules laid out like the API paths,
# e.g. handlers/pets/{id}.yaml answers /pets/{id}.
# handlers: ./handlers

# Directory x-handler values are relative to. Defaults to the
# directory of a local input document.
# baseDir: ./

# Check the document structure before building.
# validate: true

# Answer 501 for operations that have no handler. Otherwise they fail
# to resolve, or are left out of the table when no handlers directory is set.
# stubHandlers: false

# Stub every declared security scheme so secured operations can be listed.
# stubSecurity: false

# Maximum concurrent handler lookups (0 = GOMAXPROCS).
# concurrency: 0

# routes: output format (table|yaml|json).
# format: yaml

# routes: directory to write the manifest to. Prints to stdout when omitted.
# out: ./build

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite an existing manifest.
# force: false

# Enable verbose logging.
# verbose: false
`
