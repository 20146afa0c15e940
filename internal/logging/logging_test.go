// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docdeck/internal/diag"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestSetup_JSONWithLevel(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Setup("warn", "JSON", &buf)

	Named("index").Info("hidden")
	Named("index").Warn("shown", "chunks", 3)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "index", rec[diag.SourceKey])
	assert.Equal(t, float64(3), rec["chunks"])
}

func TestSetup_NamedConverterWarningsAreCaptured(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Setup("error", "text", &buf)

	ctx, scope := diag.Capture(context.Background())
	defer scope.Close()
	Named("convert.pdf").WarnContext(ctx, "page 2 has no text")

	assert.Equal(t, []string{"[WARN] convert.pdf: page 2 has no text"}, scope.Warnings())
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}
