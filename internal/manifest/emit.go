package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Options controls where and how a manifest is written.
type Options struct {
	OutDir   string // required
	FileName string // defaults to routes.<format>
	Format   string // json or yaml; yaml when empty
	Force    bool   // overwrite an existing manifest
	DryRun   bool   // plan only
}

// PlannedFile describes a file Emit writes or would write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

type Result struct {
	Planned []PlannedFile
}

// Emit renders m and writes it under opts.OutDir. With DryRun nothing is
// written and the plan is returned.
func Emit(ctx context.Context, m Manifest, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("manifest: OutDir is required")
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" || format == "yml" {
		format = FormatYAML
	}
	data, err := Render(m, format)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(opts.FileName)
	if name == "" {
		name = "routes." + format
	}

	files := map[string][]byte{name: data}
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)
	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return &Result{Planned: planned}, nil
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if !force {
		for rel := range files {
			if _, err := os.Stat(filepath.Join(abs, rel)); err == nil {
				return fmt.Errorf("manifest: output file %q already exists (use --force to overwrite)", filepath.Join(abs, rel))
			}
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
