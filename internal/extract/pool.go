// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract runs document conversion jobs on a bounded worker pool,
// capturing each job's converter warnings, extracting embedded images and
// recording every outcome in the audit log.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/docdeck/internal/audit"
	"github.com/pdiddy/docdeck/internal/convert"
	"github.com/pdiddy/docdeck/internal/diag"
	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// DefaultConcurrency is used when Pool.Concurrency is not positive.
const DefaultConcurrency = 2

// Pool converts a batch of documents concurrently. A failing document never
// affects the others: every path ends up either in the successes or in the
// failed names, and has exactly one audit entry.
type Pool struct {
	Converter convert.Converter
	Audit     *audit.Log

	// ImagesDir receives extracted pictures. Empty disables extraction.
	ImagesDir string

	// Concurrency bounds the number of documents converted at once.
	Concurrency int

	// Log receives one progress line per document. Nil discards them.
	Log io.Writer

	mu sync.Mutex
}

// Run converts paths and returns the results in completion order together
// with the base names of the documents that failed.
func (p *Pool) Run(ctx context.Context, paths []string) ([]types.Result, []string) {
	limit := p.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if p.Audit == nil {
		p.Audit = audit.New()
	}

	var (
		successes []types.Result
		failed    []string
		collect   sync.Mutex
	)

	// The group's context is never cancelled by a job: workers always
	// return nil.
	var g errgroup.Group
	g.SetLimit(limit)
	for _, path := range paths {
		g.Go(func() error {
			res, ok := p.process(ctx, path)

			collect.Lock()
			defer collect.Unlock()
			if ok {
				successes = append(successes, res)
			} else {
				failed = append(failed, filepath.Base(path))
			}
			return nil
		})
	}
	_ = g.Wait()

	logging.Named("extract").InfoContext(ctx, "batch complete",
		"succeeded", len(successes), "failed", len(failed))
	return successes, failed
}

// process runs one job end to end: convert, count pages, export Markdown,
// extract images, classify and record.
func (p *Pool) process(ctx context.Context, path string) (types.Result, bool) {
	log := logging.Named("extract")
	job := types.Job{Path: path}
	if info, err := os.Stat(path); err == nil {
		job.SizeBytes = info.Size()
	}

	res, warnings, err := p.convert(ctx, job)
	if err != nil {
		log.ErrorContext(ctx, "conversion failed", "file", job.Name(), "error", err)
		p.Audit.Failed(job, failureMessage(job, err), warnings)
		p.progress("failed:    %s (%v)\n", job.Name(), err)
		return types.Result{}, false
	}

	p.Audit.Succeeded(job, res)
	switch res.Status() {
	case types.StatusPartial:
		p.progress("partial:   %s (%d warnings, %d images)\n", job.Name(), len(res.Warnings), res.ImagesExtracted)
	default:
		p.progress("converted: %s (%d images)\n", job.Name(), res.ImagesExtracted)
	}
	return res, true
}

// convert runs the converter inside a warning capture scope. The scope is
// closed on every exit path, including a converter panic, which is reported
// as a conversion error.
func (p *Pool) convert(ctx context.Context, job types.Job) (res types.Result, warnings []string, err error) {
	ctx, scope := diag.Capture(ctx)
	defer func() {
		if r := recover(); r != nil {
			err = types.NewError(types.KindConversion, "converting "+job.Name(), fmt.Errorf("panic: %v", r))
		}
		scope.Close()
		warnings = scope.Warnings()
		if err == nil {
			res.Warnings = warnings
		}
	}()

	doc, err := p.Converter.Convert(ctx, job.Path)
	if err != nil {
		return types.Result{}, nil, err
	}

	md, err := doc.Markdown()
	if err != nil {
		return types.Result{}, nil, types.NewError(types.KindConversion, "exporting "+job.Name(), err)
	}

	res = types.Result{
		Title:      types.TitleFromFilename(job.Name()),
		SourceFile: job.Name(),
		Markdown:   md,
		PageCount:  max(doc.PageCount(), 0),
	}

	if p.ImagesDir != "" {
		stem := strings.TrimSuffix(job.Name(), filepath.Ext(job.Name()))
		n, err := ExtractImages(ctx, doc, stem, p.ImagesDir)
		if err != nil {
			logging.Named("extract").WarnContext(ctx, "image extraction skipped", "file", job.Name(), "error", err)
		}
		res.ImagesExtracted = n
	}
	return res, nil, nil
}

// failureMessage is the audit text of a failed job: the error message with
// the job's full path shortened to its base name, so reports do not carry
// the layout of the machine that produced them.
func failureMessage(job types.Job, err error) string {
	msg := err.Error()
	if job.Path != "" && job.Path != job.Name() {
		msg = strings.ReplaceAll(msg, job.Path, job.Name())
	}
	return msg
}

func (p *Pool) progress(format string, args ...any) {
	if p.Log == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Log, format, args...)
}
