// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docdeck/internal/container"
	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// MarkitdownImage is the container image used by MarkitdownConverter.
const MarkitdownImage = "markitdown:latest"

// MarkitdownConverter pipes documents through the markitdown container.
// Lines the container writes to stderr are reported as converter warnings.
// The container returns text only, so documents have no page count and no
// pictures.
type MarkitdownConverter struct {
	runtime container.Runtime
}

// NewMarkitdownConverter verifies that the markitdown image exists in rt.
func NewMarkitdownConverter(ctx context.Context, rt container.Runtime) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(ctx, MarkitdownImage); err != nil {
		return nil, types.NewError(types.KindConfig, "markitdown image not available in "+rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt}, nil
}

// Convert implements Converter.
func (m *MarkitdownConverter) Convert(ctx context.Context, path string) (Document, error) {
	log := logging.Named("convert.markitdown")
	name := fileName(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewError(types.KindConversion, "opening "+name, err)
	}
	defer f.Close()

	var out, stderr bytes.Buffer
	inv := container.Invocation{
		Image:  MarkitdownImage,
		Stdin:  f,
		Stdout: &out,
		Stderr: &stderr,
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext != "" {
		inv.Args = []string{"-x", ext}
	}
	runErr := m.runtime.Run(ctx, inv)

	sc := bufio.NewScanner(&stderr)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			log.WarnContext(ctx, fmt.Sprintf("%s: %s", name, line))
		}
	}

	if runErr != nil {
		return nil, types.NewError(types.KindConversion, "converting "+name+" with markitdown", runErr)
	}
	if out.Len() == 0 {
		return nil, types.NewError(types.KindConversion, "converting "+name+" with markitdown",
			errors.New("empty output"))
	}
	return NewDocument(out.String(), 0, nil), nil
}
