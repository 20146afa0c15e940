// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docdeck/internal/audit"
	"github.com/pdiddy/docdeck/internal/container"
	"github.com/pdiddy/docdeck/internal/convert"
	"github.com/pdiddy/docdeck/internal/extract"
	"github.com/pdiddy/docdeck/internal/output"
	"github.com/pdiddy/docdeck/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a folder of documents to Markdown",
	Long: `Convert scans the input folder for PDF, DOCX, PPTX, XLSX and TXT files,
converts them concurrently and writes normalized Markdown, extracted images
and audit_report.json to the output folder.

A document that fails is recorded in the report and never stops the run.
The command fails only when the input folder is missing or every document
failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig().Conversion
		return runConvert(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := convertCmd.Flags()
	f.String("input", "input", "folder containing the source documents")
	f.String("output", "output", "folder receiving Markdown, images and the audit report")
	f.String("mode", string(types.ModePerDocument), "output mode: per_document or single")
	f.Int("threads", 2, "number of documents converted in parallel")
	f.Bool("no-images", false, "skip embedded image extraction")
	f.Bool("no-frontmatter", false, "omit YAML front matter")
	f.Bool("no-toc", false, "omit the table of contents in single mode")
	f.String("backend", string(types.BackendNative), "conversion backend: native or markitdown")

	viper.BindPFlag("convert.input_dir", f.Lookup("input"))
	viper.BindPFlag("convert.output_dir", f.Lookup("output"))
	viper.BindPFlag("convert.mode", f.Lookup("mode"))
	viper.BindPFlag("convert.threads", f.Lookup("threads"))
	viper.BindPFlag("convert.backend", f.Lookup("backend"))

	convertCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("no-images"); v {
			viper.Set("convert.images", false)
		}
		if v, _ := cmd.Flags().GetBool("no-frontmatter"); v {
			viper.Set("convert.frontmatter", false)
		}
		if v, _ := cmd.Flags().GetBool("no-toc"); v {
			viper.Set("convert.toc", false)
		}
	}

	rootCmd.AddCommand(convertCmd)
}

// runConvert executes one conversion run and prints its summary to out.
// Per-document progress goes to progress.
func runConvert(ctx context.Context, cfg types.ConversionConfig, out, progress io.Writer) error {
	if err := validateConversion(cfg); err != nil {
		return err
	}

	paths, err := extract.Scan(ctx, cfg.InputDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintf(out, "No supported documents found in %s\n", cfg.InputDir)
		return nil
	}

	conv, err := newConverter(ctx, cfg.Backend)
	if err != nil {
		return err
	}

	log := audit.New()
	pool := &extract.Pool{
		Converter:   conv,
		Audit:       log,
		Concurrency: cfg.Threads,
		Log:         progress,
	}
	if cfg.Images {
		pool.ImagesDir = imagesDir(cfg)
	}

	results, failed := pool.Run(ctx, paths)

	var written []string
	if len(results) > 0 {
		written, err = output.Write(results, cfg.OutputDir, output.Options{
			Mode:        cfg.Mode,
			Frontmatter: cfg.Frontmatter,
			TOC:         cfg.TOC,
		})
		if err != nil {
			return err
		}
	}

	reportPath, err := log.WriteReport(cfg.OutputDir)
	if err != nil {
		return err
	}

	printSummary(out, log.Summary(), failed, written, reportPath, pool.ImagesDir)

	if len(results) == 0 {
		return fmt.Errorf("all %d documents failed to convert", len(paths))
	}
	return nil
}

func validateConversion(cfg types.ConversionConfig) error {
	switch cfg.Mode {
	case types.ModePerDocument, types.ModeSingle:
	default:
		return types.NewError(types.KindConfig, "output mode",
			fmt.Errorf("unknown mode %q, want per_document or single", cfg.Mode))
	}
	switch cfg.Backend {
	case types.BackendNative, types.BackendMarkitdown:
	default:
		return types.NewError(types.KindConfig, "conversion backend",
			fmt.Errorf("unknown backend %q, want native or markitdown", cfg.Backend))
	}
	return nil
}

// newConverter selects the conversion backend.
func newConverter(ctx context.Context, backend types.ConversionBackend) (convert.Converter, error) {
	if backend != types.BackendMarkitdown {
		return convert.NewNative(), nil
	}
	rt, err := container.Detect(ctx)
	if err != nil {
		return nil, types.NewError(types.KindConfig, "markitdown backend", err)
	}
	m, err := convert.NewMarkitdownConverter(ctx, rt)
	if err != nil {
		return nil, err
	}
	return convert.NewMarkitdownRegistry(m), nil
}

func printSummary(w io.Writer, s types.AuditSummary, failed, written []string, reportPath, imgDir string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Conversion summary")
	fmt.Fprintf(w, "  Processed:  %d\n", s.TotalDocuments)
	fmt.Fprintf(w, "  Successful: %d\n", s.Successful)
	fmt.Fprintf(w, "  Partial:    %d\n", s.Partial)
	if len(failed) > 0 {
		fmt.Fprintf(w, "  Failed:     %d (%s)\n", s.Failed, strings.Join(failed, ", "))
	} else {
		fmt.Fprintf(w, "  Failed:     %d\n", s.Failed)
	}
	fmt.Fprintf(w, "  Warnings:   %d\n", s.TotalWarnings)
	if imgDir != "" {
		fmt.Fprintf(w, "  Images:     %d in %s (%d files on disk)\n", s.TotalImagesExtracted, imgDir, countFiles(imgDir))
	} else {
		fmt.Fprintf(w, "  Images:     %d\n", s.TotalImagesExtracted)
	}
	for _, p := range written {
		fmt.Fprintf(w, "  Wrote %s\n", p)
	}
	fmt.Fprintf(w, "  Report:     %s\n", reportPath)
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(filepath.Base(e.Name()), ".") {
			n++
		}
	}
	return n
}
