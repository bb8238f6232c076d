// Package bundle packages the output directory of a batch into one zip archive.
package bundle

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/sdejongh/sigrename/pkg/storage"
)

// DefaultName is the bundle file name used when none is configured
const DefaultName = "renamed_result.zip"

// Write zips every file of backend into w, deflated, in path order.
// Files whose relative path is listed in skip are left out, which keeps a
// bundle written inside the backend from containing itself.
func Write(ctx context.Context, backend storage.Backend, w io.Writer, skip ...string) (int, error) {
	entries, err := backend.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list output: %w", err)
	}

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[strings.ToLower(s)] = true
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelativePath < entries[j].RelativePath })

	zw := zip.NewWriter(w)
	count := 0

	for _, e := range entries {
		if e.IsDir || skipped[strings.ToLower(e.RelativePath)] {
			continue
		}
		if err := ctx.Err(); err != nil {
			zw.Close()
			return count, err
		}

		if err := addFile(ctx, backend, zw, e); err != nil {
			zw.Close()
			return count, err
		}
		count++
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("failed to finish bundle: %w", err)
	}
	return count, nil
}

func addFile(ctx context.Context, backend storage.Backend, zw *zip.Writer, e storage.FileInfo) error {
	header := &zip.FileHeader{
		Name:     e.RelativePath,
		Method:   zip.Deflate,
		Modified: e.ModTime,
	}
	if e.Mode != 0 {
		header.SetMode(e.Mode)
	}

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s to bundle: %w", e.RelativePath, err)
	}

	src, err := backend.Read(ctx, e.RelativePath)
	if err != nil {
		return err
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to compress %s: %w", e.RelativePath, err)
	}
	return nil
}
