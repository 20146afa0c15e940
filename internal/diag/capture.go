// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package diag routes converter diagnostics to the conversion job that
// emitted them.
//
// All components log through one process-wide slog handler. Wrapping that
// handler in a Router lets a worker open a Scope for a single document: the
// Scope travels in the job's context, and the Router copies every WARN or
// ERROR record that originates in the converter namespace into the Scope
// carried by the record's context. Jobs running concurrently hold different
// contexts, so their diagnostics never mix.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	// SourceKey is the attribute naming the component that emitted a record.
	SourceKey = "logger"

	// ConverterNamespace is the source prefix of converter diagnostics.
	ConverterNamespace = "convert"
)

type scopeKey struct{}

// Scope collects the diagnostics of one conversion job.
type Scope struct {
	mu       sync.Mutex
	warnings []string
	closed   atomic.Bool
}

// Capture returns a context carrying a fresh Scope. The caller must Close
// the scope when the conversion ends, typically with defer.
func Capture(ctx context.Context) (context.Context, *Scope) {
	s := &Scope{}
	return context.WithValue(ctx, scopeKey{}, s), s
}

// FromContext returns the Scope carried by ctx, if any.
func FromContext(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Close detaches the scope. Records arriving afterwards are dropped.
func (s *Scope) Close() {
	s.closed.Store(true)
}

// Warnings returns the captured messages in emission order.
func (s *Scope) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

func (s *Scope) add(msg string) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	s.warnings = append(s.warnings, msg)
	s.mu.Unlock()
}

// Router is a slog.Handler that forwards every record to the wrapped
// handler and additionally copies converter warnings into the Scope found
// in the record's context.
type Router struct {
	next   slog.Handler
	source string
	groups int
}

// NewRouter wraps next.
func NewRouter(next slog.Handler) *Router {
	return &Router{next: next}
}

// Enabled reports true for captured levels whenever a scope is active, so
// warnings reach the scope even when the wrapped handler filters them out.
func (r *Router) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelWarn && FromContext(ctx) != nil {
		return true
	}
	return r.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (r *Router) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level >= slog.LevelWarn {
		if s := FromContext(ctx); s != nil {
			source := r.source
			if source == "" {
				source = recordSource(rec)
			}
			if InConverterNamespace(source) {
				s.add(Format(rec.Level, source, rec.Message))
			}
		}
	}
	if !r.next.Enabled(ctx, rec.Level) {
		return nil
	}
	return r.next.Handle(ctx, rec)
}

// WithAttrs implements slog.Handler.
func (r *Router) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *r
	out.next = r.next.WithAttrs(attrs)
	if r.groups == 0 {
		for _, a := range attrs {
			if a.Key == SourceKey {
				out.source = a.Value.String()
			}
		}
	}
	return &out
}

// WithGroup implements slog.Handler.
func (r *Router) WithGroup(name string) slog.Handler {
	if name == "" {
		return r
	}
	out := *r
	out.next = r.next.WithGroup(name)
	out.groups++
	return &out
}

// InConverterNamespace reports whether source is the converter namespace
// or one of its children.
func InConverterNamespace(source string) bool {
	return source == ConverterNamespace || strings.HasPrefix(source, ConverterNamespace+".")
}

// Format renders a captured record as "[LEVEL] source: message".
func Format(level slog.Level, source, msg string) string {
	return fmt.Sprintf("[%s] %s: %s", level.String(), source, msg)
}

func recordSource(rec slog.Record) string {
	var source string
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == SourceKey {
			source = a.Value.String()
			return false
		}
		return true
	})
	return source
}
