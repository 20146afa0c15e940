// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package images maintains the directory of extracted images.
package images

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// DuplicatesDir is the subdirectory receiving moved duplicates.
const DuplicatesDir = "duplicates"

// Report summarises a Dedupe run.
type Report struct {
	Scanned    int   `json:"scanned" yaml:"scanned"`
	Duplicates int   `json:"duplicates" yaml:"duplicates"`
	BytesFreed int64 `json:"bytes_freed" yaml:"bytes_freed"`
	DryRun     bool  `json:"dry_run" yaml:"dry_run"`
}

// Dedupe finds byte-identical .png and .jpg files in dir. Of each group it
// keeps the file with the shortest name, ties broken by name, and moves the
// others into dir/duplicates. With dryRun set nothing is moved. One line
// per duplicate is written to w.
func Dedupe(dir string, dryRun bool, w io.Writer) (Report, error) {
	log := logging.Named("images")
	if w == nil {
		w = io.Discard
	}

	info, err := os.Stat(dir)
	if err != nil {
		return Report{}, types.NewError(types.KindInputNotFound, "images directory "+dir, err)
	}
	if !info.IsDir() {
		return Report{}, types.NewError(types.KindInputNotFound, "images directory "+dir, fmt.Errorf("not a directory"))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Report{}, fmt.Errorf("reading %s: %w", dir, err)
	}

	groups := make(map[string][]string)
	var hashes []string
	rep := Report{DryRun: dryRun}
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		rep.Scanned++
		sum, err := FileHash(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warn("hashing failed", "file", e.Name(), "error", err)
			continue
		}
		if _, ok := groups[sum]; !ok {
			hashes = append(hashes, sum)
		}
		groups[sum] = append(groups[sum], e.Name())
	}

	dupDir := filepath.Join(dir, DuplicatesDir)
	for _, sum := range hashes {
		names := groups[sum]
		if len(names) < 2 {
			continue
		}
		sort.Slice(names, func(i, j int) bool {
			if len(names[i]) != len(names[j]) {
				return len(names[i]) < len(names[j])
			}
			return names[i] < names[j]
		})

		for _, dup := range names[1:] {
			src := filepath.Join(dir, dup)
			fi, err := os.Stat(src)
			if err != nil {
				log.Warn("stat failed", "file", dup, "error", err)
				continue
			}
			rep.Duplicates++
			rep.BytesFreed += fi.Size()

			if dryRun {
				fmt.Fprintf(w, "would move %s (duplicate of %s)\n", dup, names[0])
				continue
			}
			if err := os.MkdirAll(dupDir, 0o755); err != nil {
				return rep, fmt.Errorf("creating %s: %w", dupDir, err)
			}
			dest := filepath.Join(dupDir, dup)
			if _, err := os.Stat(dest); err == nil {
				dest = filepath.Join(dupDir, CollisionName(dup))
			}
			if err := os.Rename(src, dest); err != nil {
				log.Error("move failed", "file", dup, "error", err)
				continue
			}
			fmt.Fprintf(w, "moved %s (duplicate of %s)\n", dup, names[0])
		}
	}
	return rep, nil
}

// FileHash returns the hex MD5 of the file's contents.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CollisionName derives a unique name for a duplicate whose name is
// already taken in the duplicates directory: "<stem>_<md5(name)[:8]><ext>".
func CollisionName(name string) string {
	ext := filepath.Ext(name)
	sum := md5.Sum([]byte(name))
	return strings.TrimSuffix(name, ext) + "_" + hex.EncodeToString(sum[:])[:8] + ext
}

func isImage(name string) bool {
	switch filepath.Ext(name) {
	case ".png", ".jpg":
		return true
	}
	return false
}
