// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package audit records per-document outcomes of a conversion run and
// writes them as a JSON report.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pdiddy/docdeck/pkg/types"
)

// ReportFile is the fixed name of the report inside the output directory.
const ReportFile = "audit_report.json"

// Log is an append-only, run-scoped record of audit entries. It is safe
// for concurrent use by pool workers.
type Log struct {
	startedAt time.Time

	mu      sync.Mutex
	entries []types.AuditEntry
}

// New starts a log whose run timestamp is now.
func New() *Log {
	return &Log{startedAt: time.Now().UTC()}
}

// StartedAt returns the run start time.
func (l *Log) StartedAt() time.Time {
	return l.startedAt
}

// Record appends one entry. The size is rounded to two decimals and a nil
// warning list is stored as empty.
func (l *Log) Record(e types.AuditEntry) {
	if e.Warnings == nil {
		e.Warnings = []string{}
	} else {
		e.Warnings = append([]string(nil), e.Warnings...)
	}
	e.FileSizeMB = round2(e.FileSizeMB)

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// Succeeded records a conversion result as success or partial, depending on
// whether it carries warnings.
func (l *Log) Succeeded(job types.Job, r types.Result) {
	l.Record(types.AuditEntry{
		SourceFile:      r.SourceFile,
		Status:          r.Status(),
		FileSizeMB:      job.SizeMB(),
		PageCount:       r.PageCount,
		ImagesExtracted: r.ImagesExtracted,
		Warnings:        r.Warnings,
	})
}

// Failed records a failed job. Pages and images are zero by definition.
func (l *Log) Failed(job types.Job, errMsg string, warnings []string) {
	l.Record(types.AuditEntry{
		SourceFile: job.Name(),
		Status:     types.StatusFailed,
		FileSizeMB: job.SizeMB(),
		Warnings:   warnings,
		Error:      &errMsg,
	})
}

// Entries returns a copy of the recorded entries in append order.
func (l *Log) Entries() []types.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Summary scans the recorded entries.
func (l *Log) Summary() types.AuditSummary {
	return Summarize(l.Entries())
}

// Summarize computes the counts of a report from its entries.
func Summarize(entries []types.AuditEntry) types.AuditSummary {
	s := types.AuditSummary{TotalDocuments: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case types.StatusSuccess:
			s.Successful++
		case types.StatusPartial:
			s.Partial++
		case types.StatusFailed:
			s.Failed++
		}
		s.TotalImagesExtracted += e.ImagesExtracted
		s.TotalWarnings += len(e.Warnings)
	}
	return s
}

// Report builds the report for the entries recorded so far.
func (l *Log) Report() types.AuditReport {
	entries := l.Entries()
	return types.AuditReport{
		RunTimestamp: l.startedAt.Format(time.RFC3339Nano),
		Summary:      Summarize(entries),
		Documents:    entries,
	}
}

// WriteReport writes audit_report.json into dir, creating dir if needed,
// and returns the report path. Each call overwrites the previous report.
func (l *Log) WriteReport(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", types.NewError(types.KindReportWrite, "creating report directory", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l.Report()); err != nil {
		return "", types.NewError(types.KindReportWrite, "encoding report", err)
	}

	path := filepath.Join(dir, ReportFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", types.NewError(types.KindReportWrite, "writing "+path, err)
	}

	slog.Info("audit report written", "path", path)
	return path, nil
}

// LoadReport reads a report written by WriteReport.
func LoadReport(path string) (*types.AuditReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	var r types.AuditReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &r, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
