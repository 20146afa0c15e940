// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"math"
	"path/filepath"
	"strings"
	"unicode"
)

// Status is the outcome recorded for one document in the audit log.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// JobState tracks a conversion job through the worker pool.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobPartial   JobState = "partial"
	JobFailed    JobState = "failed"
)

// Job is one source document queued for conversion.
type Job struct {
	// Path is the filesystem path to the source document.
	Path string `json:"path" yaml:"path"`

	// SizeBytes is the file size at the time the job was created.
	SizeBytes int64 `json:"size_bytes" yaml:"size_bytes"`
}

// Name returns the base filename of the job's source document.
func (j Job) Name() string {
	return filepath.Base(j.Path)
}

// SizeMB returns the file size in megabytes rounded to two decimals.
func (j Job) SizeMB() float64 {
	return RoundMB(j.SizeBytes)
}

// RoundMB converts a byte count to megabytes rounded to two decimals.
func RoundMB(n int64) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}

// Result is the converted form of one document. It is created once by a
// worker and handed to the caller; nothing mutates it afterwards.
type Result struct {
	// Title is derived from the source filename (see TitleFromFilename).
	Title string `json:"title" yaml:"title"`

	// SourceFile is the base filename of the source document.
	SourceFile string `json:"source_file" yaml:"source_file"`

	// Markdown is the full Markdown export of the document.
	Markdown string `json:"markdown_content" yaml:"markdown_content"`

	// PageCount is the number of pages, or 0 when the converter cannot tell.
	PageCount int `json:"page_count" yaml:"page_count"`

	// ImagesExtracted counts the pictures written to the images directory.
	ImagesExtracted int `json:"images_extracted" yaml:"images_extracted"`

	// Warnings holds the converter diagnostics captured during this job.
	Warnings []string `json:"warnings" yaml:"warnings"`
}

// Status classifies a successful conversion: any captured warning makes it
// partial.
func (r Result) Status() Status {
	if len(r.Warnings) > 0 {
		return StatusPartial
	}
	return StatusSuccess
}

// TitleFromFilename turns "my_report-v2.pdf" into "My Report V2".
func TitleFromFilename(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)

	words := strings.Fields(stem)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// AuditEntry records the outcome of a single job.
//
// A failed entry always carries Error and has zero pages and images. A
// partial entry always has at least one warning; a success entry has none.
type AuditEntry struct {
	SourceFile      string   `json:"source_file" yaml:"source_file"`
	Status          Status   `json:"status" yaml:"status"`
	FileSizeMB      float64  `json:"file_size_mb" yaml:"file_size_mb"`
	PageCount       int      `json:"page_count" yaml:"page_count"`
	ImagesExtracted int      `json:"images_extracted" yaml:"images_extracted"`
	Warnings        []string `json:"warnings" yaml:"warnings"`
	Error           *string  `json:"error" yaml:"error"`
}

// AuditSummary aggregates the entries of one run.
type AuditSummary struct {
	TotalDocuments       int `json:"total_documents" yaml:"total_documents"`
	Successful           int `json:"successful" yaml:"successful"`
	Partial              int `json:"partial" yaml:"partial"`
	Failed               int `json:"failed" yaml:"failed"`
	TotalImagesExtracted int `json:"total_images_extracted" yaml:"total_images_extracted"`
	TotalWarnings        int `json:"total_warnings" yaml:"total_warnings"`
}

// AuditReport is the document written to audit_report.json.
type AuditReport struct {
	RunTimestamp string       `json:"run_timestamp" yaml:"run_timestamp"`
	Summary      AuditSummary `json:"summary" yaml:"summary"`
	Documents    []AuditEntry `json:"documents" yaml:"documents"`
}

// Chunk is one retrievable passage of the aggregated context.
type Chunk struct {
	ID            int64  `json:"id" yaml:"id"`
	SourceDocName string `json:"source_doc_name" yaml:"source_doc_name"`
	Content       string `json:"content" yaml:"content"`
}
