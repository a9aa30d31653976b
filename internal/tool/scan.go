// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/gemaraproj/credsniff/internal/content"
)

// NormalizeFiles reads and normalizes each file on up to workers goroutines.
// Every file gets its own provider; nothing mutable is shared between them.
// Reports keep the order of paths.
func (n *Normalizer) NormalizeFiles(ctx context.Context, paths []string, workers int) ([]Report, error) {
	if workers < 1 {
		workers = 1
	}
	reports := make([]Report, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			raw := &content.RawContent{
				Data: data,
				Path: path,
				Kind: fileKind(path, data),
			}
			report, err := n.Normalize(ctx, raw)
			if err != nil {
				return fmt.Errorf("normalize %s: %w", path, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// fileKind is the extension of path, or the extension of the sniffed content
// type when path has none.
func fileKind(path string, data []byte) string {
	if ext := filepath.Ext(path); ext != "" {
		return strings.TrimPrefix(ext, ".")
	}
	return strings.TrimPrefix(mimetype.Detect(data).Extension(), ".")
}
