package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/sdejongh/sigrename/internal/platform"
	"github.com/sdejongh/sigrename/pkg/logging"
	"github.com/sdejongh/sigrename/pkg/models"
)

// ErrNoInput is returned when a run has nothing to process
var ErrNoInput = errors.New("no input files to process")

// LoadOptions controls how input paths are turned into file records
type LoadOptions struct {
	// ExpandArchives expands every .zip input into its member files
	ExpandArchives bool

	// MaxFileSize rejects larger files with a failed record (0 = unlimited)
	MaxFileSize int64

	// Exclude skips matching loose files and archive members
	Exclude *Excluder

	Logger logging.Logger
}

// Inputs is the flat file set of a batch
type Inputs struct {
	Records        []models.FileRecord
	ArchivesOpened int
	Excluded       int
}

// LoadInputs reads every path into memory. Directories are walked, zip
// archives are expanded one level deep (nested archives stay opaque) and
// everything is merged into one flat list in input order. Per-file read
// errors become failed records; only an empty result is an error.
func LoadInputs(ctx context.Context, paths []string, opts LoadOptions) (*Inputs, error) {
	if len(paths) == 0 {
		return nil, ErrNoInput
	}

	l := &loader{opts: opts, in: &Inputs{}}
	if l.opts.Logger == nil {
		l.opts.Logger = logging.Discard
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(p)
		if err != nil {
			l.fail(filepath.Base(p), "", fmt.Errorf("failed to access input: %w", err))
			continue
		}

		if info.IsDir() {
			if err := l.loadDir(ctx, p); err != nil {
				return nil, err
			}
			continue
		}

		l.loadFile(ctx, p, filepath.Base(p), info)
	}

	if len(l.in.Records) == 0 {
		return nil, ErrNoInput
	}

	return l.in, nil
}

type loader struct {
	opts LoadOptions
	in   *Inputs
}

func (l *loader) add(rec models.FileRecord) {
	l.in.Records = append(l.in.Records, rec)
}

func (l *loader) fail(name, origin string, err error) {
	rec := models.NewFailedRecord(name, err)
	rec.Origin = origin
	l.add(rec)
	l.opts.Logger.Warn(context.Background(), "Input could not be read", logging.Fields{
		"name":   name,
		"origin": origin,
		"error":  err.Error(),
	})
}

func (l *loader) excluded(name string) bool {
	if l.opts.Exclude.Match(name) {
		l.in.Excluded++
		return true
	}
	return false
}

func (l *loader) tooLarge(size int64) bool {
	return l.opts.MaxFileSize > 0 && size > l.opts.MaxFileSize
}

// loadDir adds every regular file below dir, named relative to dir
func (l *loader) loadDir(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			rel, _ := filepath.Rel(dir, p)
			l.fail(filepath.ToSlash(rel), "", err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			l.fail(filepath.ToSlash(rel), "", err)
			return nil
		}

		l.loadFile(ctx, p, filepath.ToSlash(rel), info)
		return nil
	})
}

// loadFile reads one file from disk, expanding it when it is a zip archive
func (l *loader) loadFile(ctx context.Context, fullPath, name string, info fs.FileInfo) {
	if l.excluded(name) {
		return
	}
	if l.tooLarge(info.Size()) {
		l.fail(name, "", fmt.Errorf("file size %d exceeds limit of %d bytes", info.Size(), l.opts.MaxFileSize))
		return
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		l.fail(name, "", fmt.Errorf("failed to read file: %w", err))
		return
	}

	if l.opts.ExpandArchives && strings.EqualFold(filepath.Ext(name), ".zip") {
		if l.expand(ctx, name, data) {
			return
		}
	}

	rec := models.NewFileRecord(name, data)
	rec.ModTime = info.ModTime()
	l.add(rec)
}

// expand adds the members of the archive held in data. It returns false
// when data does not open as a zip, in which case the caller keeps it as a
// loose file.
func (l *loader) expand(ctx context.Context, archive string, data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		l.opts.Logger.Warn(ctx, "Archive could not be opened, treating it as a file", logging.Fields{
			"archive": archive,
			"error":   err.Error(),
		})
		return false
	}

	l.in.ArchivesOpened++
	l.opts.Logger.Debug(ctx, "Expanding archive", logging.Fields{
		"archive": archive,
		"entries": len(zr.File),
	})

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}

		name, err := platform.CleanArchivePath(f.Name)
		if err != nil {
			l.fail(f.Name, archive, err)
			continue
		}
		if l.excluded(name) {
			continue
		}
		if l.tooLarge(int64(f.UncompressedSize64)) {
			l.fail(name, archive, fmt.Errorf("file size %d exceeds limit of %d bytes", f.UncompressedSize64, l.opts.MaxFileSize))
			continue
		}

		content, err := readMember(f)
		if err != nil {
			l.fail(name, archive, err)
			continue
		}

		rec := models.NewFileRecord(name, content)
		rec.Origin = archive
		rec.ModTime = f.Modified
		l.add(rec)
	}

	return true
}

func readMember(f *zip.File) ([]byte, error) {
	if f.Flags&0x1 != 0 {
		return nil, fmt.Errorf("archive member is encrypted")
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive member: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive member: %w", err)
	}
	return data, nil
}
