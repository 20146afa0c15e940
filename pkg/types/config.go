// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OutputMode selects how converted documents are written.
type OutputMode string

const (
	ModePerDocument OutputMode = "per_document"
	ModeSingle      OutputMode = "single"
)

// ConversionBackend identifies the document conversion strategy.
type ConversionBackend string

const (
	BackendNative     ConversionBackend = "native"
	BackendMarkitdown ConversionBackend = "markitdown"
)

// ConversionConfig holds settings for the convert stage.
type ConversionConfig struct {
	// InputDir is the flat folder scanned for source documents.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// OutputDir receives Markdown files, the audit report and images.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Mode is per_document (one file per source) or single (context.md).
	Mode OutputMode `json:"mode" yaml:"mode"`

	// Threads is the number of documents converted in parallel (default 2).
	Threads int `json:"threads" yaml:"threads"`

	// Images controls embedded image extraction.
	Images bool `json:"images" yaml:"images"`

	// ImagesSubdir is the directory under OutputDir for extracted images.
	ImagesSubdir string `json:"images_subdir" yaml:"images_subdir"`

	// Frontmatter prepends a YAML block to every Markdown file.
	Frontmatter bool `json:"frontmatter" yaml:"frontmatter"`

	// TOC adds a table of contents in single mode.
	TOC bool `json:"toc" yaml:"toc"`

	// Backend selects native readers or the markitdown container.
	Backend ConversionBackend `json:"backend" yaml:"backend"`
}

// IndexConfig holds settings for the context index.
type IndexConfig struct {
	// DBPath is the SQLite database file.
	DBPath string `json:"db_path" yaml:"db_path"`

	// ChunkSize is the target chunk length in characters (default 1000).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// ChunkOverlap is the number of characters shared by neighbouring chunks (default 200).
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// K is the number of chunks retrieved per slide (default 5).
	K int `json:"k" yaml:"k"`
}

// LLMProvider identifies the chat completion backend.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOllama LLMProvider = "ollama"
)

// GenerationConfig holds settings for the slide generation stage.
type GenerationConfig struct {
	// Provider is gemini (Vertex AI) or ollama (HTTP).
	Provider LLMProvider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "gemini-1.5-pro").
	Model string `json:"model" yaml:"model"`

	// Project and Location address the Vertex AI endpoint.
	Project  string `json:"project" yaml:"project"`
	Location string `json:"location" yaml:"location"`

	// BaseURL is the Ollama server address.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is sent as a bearer token by the HTTP backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Temperature controls sampling for slide content.
	Temperature float32 `json:"temperature" yaml:"temperature"`

	// MaxAttempts caps consecutive rate-limit retries (default 5).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// DefaultDelay is used when the provider gives no retry hint (default 10s).
	DefaultDelay time.Duration `json:"default_delay" yaml:"default_delay"`

	// RequestsPerMinute paces LLM calls; 0 disables pacing.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`

	// Template is an optional deck front matter file.
	Template string `json:"template" yaml:"template"`

	// OutputDir receives the generated decks.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// Config groups all stage configurations.
type Config struct {
	Conversion ConversionConfig `json:"convert" yaml:"convert"`
	Index      IndexConfig      `json:"index" yaml:"index"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
}
