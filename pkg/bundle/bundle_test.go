package bundle

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/sigrename/pkg/storage"
)

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"doc.docx":           "word",
		"nested/scan.png":    "png",
		"rename_report.xlsx": "xlsx",
		"renamed_result.zip": "old bundle",
	}
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
		require.NoError(t, os.Chmod(full, 0640))
	}

	backend, err := storage.NewLocal(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := Write(context.Background(), backend, &buf, "RENAMED_RESULT.ZIP")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		require.Equal(t, zip.Deflate, f.Method)
		require.Equal(t, os.FileMode(0640), f.Mode().Perm())

		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		require.Equal(t, files[f.Name], string(data))
	}
	require.Equal(t, []string{"doc.docx", "nested/scan.png", "rename_report.xlsx"}, names)
}

func TestWriteCancelled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644))

	backend, err := storage.NewLocal(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Write(ctx, backend, io.Discard)
	require.Error(t, err)
}
