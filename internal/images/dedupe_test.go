// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package images

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docdeck/pkg/types"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestDedupe_MovesAllButShortestName(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a_img_000.png", "same")
	write(t, dir, "b_img_000.png", "same")
	write(t, dir, "long_name_img_000.png", "same")
	write(t, dir, "unique.jpg", "other")
	write(t, dir, "notes.txt", "same")

	var out bytes.Buffer
	rep, err := Dedupe(dir, false, &out)
	require.NoError(t, err)

	assert.Equal(t, Report{Scanned: 4, Duplicates: 2, BytesFreed: 8}, rep)
	assert.True(t, exists(filepath.Join(dir, "a_img_000.png")))
	assert.True(t, exists(filepath.Join(dir, "unique.jpg")))
	assert.True(t, exists(filepath.Join(dir, DuplicatesDir, "b_img_000.png")))
	assert.True(t, exists(filepath.Join(dir, DuplicatesDir, "long_name_img_000.png")))
	assert.False(t, exists(filepath.Join(dir, "b_img_000.png")))
	assert.Contains(t, out.String(), "moved b_img_000.png (duplicate of a_img_000.png)")
}

func TestDedupe_DryRunMovesNothing(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "x.png", "dup")
	write(t, dir, "yy.png", "dup")

	var out bytes.Buffer
	rep, err := Dedupe(dir, true, &out)
	require.NoError(t, err)

	assert.Equal(t, Report{Scanned: 2, Duplicates: 1, BytesFreed: 3, DryRun: true}, rep)
	assert.True(t, exists(filepath.Join(dir, "yy.png")))
	assert.False(t, exists(filepath.Join(dir, DuplicatesDir)))
	assert.Equal(t, "would move yy.png (duplicate of x.png)\n", out.String())
}

func TestDedupe_CollisionInDuplicatesDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DuplicatesDir), 0o755))
	write(t, filepath.Join(dir, DuplicatesDir), "bb.png", "earlier run")
	write(t, dir, "aa.png", "dup")
	write(t, dir, "bb.png", "dup")

	_, err := Dedupe(dir, false, nil)
	require.NoError(t, err)

	sum := md5.Sum([]byte("bb.png"))
	renamed := "bb_" + hex.EncodeToString(sum[:])[:8] + ".png"
	assert.Equal(t, renamed, CollisionName("bb.png"))
	assert.True(t, exists(filepath.Join(dir, DuplicatesDir, renamed)))

	prior, err := os.ReadFile(filepath.Join(dir, DuplicatesDir, "bb.png"))
	require.NoError(t, err)
	assert.Equal(t, "earlier run", string(prior))
}

func TestDedupe_MissingDir(t *testing.T) {
	_, err := Dedupe(filepath.Join(t.TempDir(), "none"), false, nil)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindInputNotFound))
}

func TestFileHash(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "f.png", "abc")
	got, err := FileHash(filepath.Join(dir, "f.png"))
	require.NoError(t, err)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", got)
}
