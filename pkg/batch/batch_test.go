package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/sigrename/pkg/detect"
	"github.com/sdejongh/sigrename/pkg/models"
	"github.com/sdejongh/sigrename/pkg/report"
	"github.com/sdejongh/sigrename/pkg/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type member struct {
	name string
	data []byte
}

func buildZip(t *testing.T, members ...member) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		_, err = w.Write(m.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func docxBytes(t *testing.T) []byte {
	return buildZip(t,
		member{"[Content_Types].xml", []byte("<Types/>")},
		member{"word/document.xml", []byte("<w:document/>")},
	)
}

// writeInputs creates the files in a fresh directory and returns their paths
func writeInputs(t *testing.T, files map[string][]byte, order ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, name := range order {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, files[name], 0644))
		paths = append(paths, p)
	}
	return paths
}

type runResult struct {
	report *models.BatchReport
	outDir string
}

func runBatch(t *testing.T, in *Inputs, op models.BatchOperation, reports ReportOptions) runResult {
	t.Helper()
	outDir := filepath.Join(t.TempDir(), "out")
	backend, err := storage.NewLocal(outDir)
	require.NoError(t, err)
	return runWith(t, backend, in, op, reports)
}

func runWith(t *testing.T, backend storage.Backend, in *Inputs, op models.BatchOperation, reports ReportOptions) runResult {
	t.Helper()
	op.ID = "test-op"
	p := NewProcessor(backend, detect.NewDefault(), nil, nil, &op, reports)
	rep, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	return runResult{report: rep, outDir: backend.Root()}
}

func load(t *testing.T, paths []string) *Inputs {
	t.Helper()
	in, err := LoadInputs(context.Background(), paths, LoadOptions{ExpandArchives: true})
	require.NoError(t, err)
	return in
}

func TestOfficeDocumentIsRenamed(t *testing.T) {
	paths := writeInputs(t, map[string][]byte{"doc.bin": docxBytes(t)}, "doc.bin")

	res := runBatch(t, load(t, paths), models.BatchOperation{}, DefaultReportOptions())

	require.Len(t, res.report.Actions, 1)
	a := res.report.Actions[0]
	require.Equal(t, ".docx", a.DetectedExt)
	require.Equal(t, models.ActionRenamed, a.Action)
	require.Equal(t, "doc.docx", a.OutputName)
	require.Equal(t, models.BasisHeuristic, a.Basis)
	require.Equal(t, models.StatusSuccess, res.report.Status)

	require.FileExists(t, filepath.Join(res.outDir, "doc.docx"))
	require.NoFileExists(t, filepath.Join(res.outDir, "doc.bin"))
}

func TestMatchingExtensionIsLeftUnchanged(t *testing.T) {
	paths := writeInputs(t, map[string][]byte{"photo.png": pngBytes}, "photo.png")

	res := runBatch(t, load(t, paths), models.BatchOperation{}, DefaultReportOptions())

	a := res.report.Actions[0]
	require.Equal(t, models.ActionLeftUnchanged, a.Action)
	require.Equal(t, "photo.png", a.OutputName)

	data, err := os.ReadFile(filepath.Join(res.outDir, "photo.png"))
	require.NoError(t, err)
	require.Equal(t, pngBytes, data)
}

func TestArchiveIsExpanded(t *testing.T) {
	archive := buildZip(t,
		member{"photo.png", pngBytes},
		member{"scans/scan.tmp", pngBytes},
	)
	paths := writeInputs(t, map[string][]byte{"upload.zip": archive}, "upload.zip")

	in := load(t, paths)
	require.Equal(t, 1, in.ArchivesOpened)
	require.Len(t, in.Records, 2)
	require.Equal(t, "upload.zip", in.Records[1].Origin)

	res := runBatch(t, in, models.BatchOperation{}, DefaultReportOptions())

	require.Len(t, res.report.Actions, 2)
	require.Equal(t, models.ActionLeftUnchanged, res.report.Actions[0].Action)
	require.Equal(t, models.ActionRenamed, res.report.Actions[1].Action)
	require.Equal(t, "scans/scan.png", res.report.Actions[1].OutputName)
	require.FileExists(t, filepath.Join(res.outDir, "scans", "scan.png"))

	summary := report.BuildSummary(res.report.Actions)
	require.Len(t, summary.Formats, 1)
	require.Equal(t, 2, summary.Formats[0].Count)
	require.Equal(t, 1, summary.Formats[0].Renamed)
	require.Equal(t, 1, res.report.Stats.ArchivesOpened)
}

func TestNestedArchiveStaysOpaque(t *testing.T) {
	inner := buildZip(t, member{"a.png", pngBytes})
	outer := buildZip(t, member{"inner.zip", inner})
	paths := writeInputs(t, map[string][]byte{"outer.zip": outer}, "outer.zip")

	in := load(t, paths)
	require.Len(t, in.Records, 1)
	require.Equal(t, "inner.zip", in.Records[0].Name)

	res := runBatch(t, in, models.BatchOperation{}, DefaultReportOptions())
	require.Equal(t, models.ActionLeftUnchanged, res.report.Actions[0].Action)
	require.Equal(t, ".zip", res.report.Actions[0].DetectedExt)
}

func TestUnopenableArchiveIsALooseFile(t *testing.T) {
	paths := writeInputs(t, map[string][]byte{"broken.zip": []byte("PK\x03\x04 not really a zip")}, "broken.zip")

	in := load(t, paths)
	require.Zero(t, in.ArchivesOpened)
	require.Len(t, in.Records, 1)
	require.Equal(t, "broken.zip", in.Records[0].Name)
}

func TestArchiveMemberSanitizingAndExclusion(t *testing.T) {
	archive := buildZip(t,
		member{"../../escape.png", pngBytes},
		member{"__MACOSX/._escape.png", []byte{0, 5, 22, 7}},
		member{"dir/.DS_Store", []byte{0, 0, 0, 1}},
		member{"dir/", nil},
	)
	paths := writeInputs(t, map[string][]byte{"in.zip": archive}, "in.zip")

	excluder, err := NewExcluder(DefaultExcludePatterns)
	require.NoError(t, err)

	in, err := LoadInputs(context.Background(), paths, LoadOptions{ExpandArchives: true, Exclude: excluder})
	require.NoError(t, err)
	require.Len(t, in.Records, 1)
	require.Equal(t, "escape.png", in.Records[0].Name)
	require.Equal(t, 2, in.Excluded)
}

func TestArchivesNotExpandedWhenDisabled(t *testing.T) {
	archive := buildZip(t, member{"a.png", pngBytes})
	paths := writeInputs(t, map[string][]byte{"in.zip": archive}, "in.zip")

	in, err := LoadInputs(context.Background(), paths, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, in.Records, 1)
	require.Equal(t, "in.zip", in.Records[0].Name)
}

func TestMaxFileSize(t *testing.T) {
	paths := writeInputs(t, map[string][]byte{
		"big.png":   append(append([]byte{}, pngBytes...), make([]byte, 200)...),
		"small.png": pngBytes,
	}, "big.png", "small.png")

	in, err := LoadInputs(context.Background(), paths, LoadOptions{MaxFileSize: 100})
	require.NoError(t, err)
	require.Len(t, in.Records, 2)
	require.Error(t, in.Records[0].Err)
	require.NoError(t, in.Records[1].Err)

	res := runBatch(t, in, models.BatchOperation{}, DefaultReportOptions())
	require.Equal(t, models.ActionFailed, res.report.Actions[0].Action)
	require.Contains(t, res.report.Actions[0].Reason, "exceeds limit")
	require.Equal(t, models.StatusPartial, res.report.Status)
}

func TestDirectoryInput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "x.dat"), pngBytes, 0644))

	in := load(t, []string{dir})
	require.Len(t, in.Records, 1)
	require.Equal(t, "sub/x.dat", in.Records[0].Name)
	require.False(t, in.Records[0].ModTime.IsZero())
}

func TestNoInput(t *testing.T) {
	_, err := LoadInputs(context.Background(), nil, LoadOptions{})
	require.ErrorIs(t, err, ErrNoInput)

	// an archive whose members are all excluded leaves nothing to do
	archive := buildZip(t, member{"__MACOSX/x", []byte("x")})
	paths := writeInputs(t, map[string][]byte{"only.zip": archive}, "only.zip")
	excluder, err := NewExcluder(DefaultExcludePatterns)
	require.NoError(t, err)
	_, err = LoadInputs(context.Background(), paths, LoadOptions{ExpandArchives: true, Exclude: excluder})
	require.ErrorIs(t, err, ErrNoInput)

	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	p := NewProcessor(backend, detect.NewDefault(), nil, nil, &models.BatchOperation{}, DefaultReportOptions())
	_, err = p.Run(context.Background(), &Inputs{})
	require.ErrorIs(t, err, ErrNoInput)
}

func TestMissingInputIsFailedRecord(t *testing.T) {
	paths := writeInputs(t, map[string][]byte{"ok.png": pngBytes}, "ok.png")
	paths = append(paths, filepath.Join(t.TempDir(), "missing.pdf"))

	res := runBatch(t, load(t, paths), models.BatchOperation{}, DefaultReportOptions())

	require.Len(t, res.report.Actions, 2)
	failed := res.report.Actions[1]
	require.Equal(t, models.ActionFailed, failed.Action)
	require.Equal(t, "missing.pdf", failed.OriginalName)
	require.Equal(t, models.FormatUnknown, failed.Format)
	require.NotEmpty(t, failed.Reason)
	require.Equal(t, models.StatusPartial, res.report.Status)
}

func TestCollisionsGetSuffix(t *testing.T) {
	in := &Inputs{Records: []models.FileRecord{
		models.NewFileRecord("a.bin", pngBytes),
		models.NewFileRecord("A.PNG", pngBytes),
		models.NewFileRecord("a.tmp", pngBytes),
	}}

	res := runBatch(t, in, models.BatchOperation{}, DefaultReportOptions())

	names := []string{}
	for _, a := range res.report.Actions {
		names = append(names, a.OutputName)
		require.Equal(t, ".png", strings.ToLower(filepath.Ext(a.OutputName)))
	}
	require.Equal(t, []string{"a.png", "A__2.PNG", "a__3.png"}, names)
	require.Equal(t, models.ActionLeftUnchanged, res.report.Actions[1].Action)

	for _, n := range names {
		require.FileExists(t, filepath.Join(res.outDir, n))
	}
}

func TestExistingOutputIsNotOverwritten(t *testing.T) {
	outDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "photo.png"), []byte("keep"), 0644))
	backend, err := storage.NewLocal(outDir)
	require.NoError(t, err)

	in := &Inputs{Records: []models.FileRecord{models.NewFileRecord("photo.png", pngBytes)}}
	res := runWith(t, backend, in, models.BatchOperation{}, DefaultReportOptions())

	require.Equal(t, "photo__2.png", res.report.Actions[0].OutputName)
	data, err := os.ReadFile(filepath.Join(outDir, "photo.png"))
	require.NoError(t, err)
	require.Equal(t, "keep", string(data))
}

func TestInputNamedLikeReportIsRenamed(t *testing.T) {
	in := &Inputs{Records: []models.FileRecord{models.NewFileRecord(report.WorkbookName, docxBytes(t))}}

	res := runBatch(t, in, models.BatchOperation{}, DefaultReportOptions())

	a := res.report.Actions[0]
	require.Equal(t, models.ActionRenamed, a.Action)
	require.Equal(t, "rename_report.docx", a.OutputName)

	in = &Inputs{Records: []models.FileRecord{models.NewFileRecord(report.WorkbookName, []byte{0x00, 0x13, 0x37})}}
	res = runBatch(t, in, models.BatchOperation{}, DefaultReportOptions())
	require.Equal(t, models.ActionCopiedUnchanged, res.report.Actions[0].Action)
	require.Equal(t, "rename_report__2.xlsx", res.report.Actions[0].OutputName)
}

// failingBackend rejects writes of one output name
type failingBackend struct {
	*storage.Local
	reject string
}

func (f *failingBackend) Write(ctx context.Context, path string, r io.Reader, size int64, meta *storage.FileInfo) error {
	if path == f.reject {
		return errors.New("disk quota exceeded")
	}
	return f.Local.Write(ctx, path, r, size, meta)
}

func TestMemberBelowReportNameKeepsReports(t *testing.T) {
	archive := buildZip(t,
		member{"rename_report.xlsx/a.png", pngBytes},
		member{"ok.png", pngBytes},
	)
	paths := writeInputs(t, map[string][]byte{"in.zip": archive}, "in.zip")

	opts := DefaultReportOptions()
	res := runBatch(t, load(t, paths), models.BatchOperation{WriteCSV: true}, opts)

	require.Equal(t, models.StatusSuccess, res.report.Status)
	require.Len(t, res.report.Actions, 2)
	require.Equal(t, "rename_report__2.xlsx/a.png", res.report.Actions[0].OutputName)
	require.Equal(t, "ok.png", res.report.Actions[1].OutputName)

	info, err := os.Stat(filepath.Join(res.outDir, opts.WorkbookName))
	require.NoError(t, err)
	require.False(t, info.IsDir())
	require.FileExists(t, filepath.Join(res.outDir, "rename_report__2.xlsx", "a.png"))
}

func TestFileDirectoryClash(t *testing.T) {
	opaque := []byte{0x00, 0x01, 0x02, 0x03, 0xFE}

	tests := []struct {
		name    string
		members []member
		want    []string
	}{
		{"FileFirst", []member{{"a", opaque}, {"a/b.png", pngBytes}}, []string{"a", "a__2/b.png"}},
		{"DirectoryFirst", []member{{"a/b.png", pngBytes}, {"a", opaque}}, []string{"a/b.png", "a__2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := writeInputs(t, map[string][]byte{"in.zip": buildZip(t, tt.members...)}, "in.zip")

			res := runBatch(t, load(t, paths), models.BatchOperation{}, DefaultReportOptions())

			require.Equal(t, models.StatusSuccess, res.report.Status)
			var got []string
			for _, a := range res.report.Actions {
				require.NotEqual(t, models.ActionFailed, a.Action, a.Reason)
				require.FileExists(t, filepath.Join(res.outDir, filepath.FromSlash(a.OutputName)))
				got = append(got, a.OutputName)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestWriteFailureContinuesBatch(t *testing.T) {
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	backend := &failingBackend{Local: local, reject: "b.png"}

	in := &Inputs{Records: []models.FileRecord{
		models.NewFileRecord("a.png", pngBytes),
		models.NewFileRecord("b.png", pngBytes),
		models.NewFileRecord("c.png", pngBytes),
	}}

	res := runWith(t, backend, in, models.BatchOperation{}, DefaultReportOptions())

	require.Len(t, res.report.Actions, 3)
	require.Equal(t, models.ActionFailed, res.report.Actions[1].Action)
	require.Equal(t, "disk quota exceeded", res.report.Actions[1].Reason)
	require.Equal(t, models.ActionLeftUnchanged, res.report.Actions[2].Action)
	require.Equal(t, 1, res.report.Stats.FilesFailed)
	require.Equal(t, models.StatusPartial, res.report.Status)

	// the report still lists every file
	f, err := os.Open(filepath.Join(local.Root(), report.WorkbookName))
	require.NoError(t, err)
	f.Close()
}

func TestUnwritableReportIsFatal(t *testing.T) {
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	backend := &failingBackend{Local: local, reject: report.WorkbookName}

	op := models.BatchOperation{}
	p := NewProcessor(backend, detect.NewDefault(), nil, nil, &op, DefaultReportOptions())
	rep, err := p.Run(context.Background(), &Inputs{Records: []models.FileRecord{models.NewFileRecord("a.png", pngBytes)}})

	require.Error(t, err)
	require.Equal(t, models.StatusFailed, rep.Status)
}

func TestUnknownIsCopiedUnchanged(t *testing.T) {
	in := &Inputs{Records: []models.FileRecord{
		models.NewFileRecord("blob.dat", []byte{0x00, 0x13, 0x37, 0x00, 0x42, 0x01}),
		models.NewFileRecord("empty.txt", nil),
	}}

	res := runBatch(t, in, models.BatchOperation{}, DefaultReportOptions())

	for _, a := range res.report.Actions {
		require.Equal(t, models.ActionCopiedUnchanged, a.Action)
		require.Equal(t, a.OriginalName, a.OutputName)
		require.Equal(t, models.BasisUnknown, a.Basis)
	}
	require.Equal(t, 2, res.report.Stats.FilesUnknown)
}

func TestAliasExtensionIsLeftUnchanged(t *testing.T) {
	in := &Inputs{Records: []models.FileRecord{
		models.NewFileRecord("photo.JPEG", []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00")),
		models.NewFileRecord("scan.bin", []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00")),
	}}

	res := runBatch(t, in, models.BatchOperation{}, DefaultReportOptions())

	kept := res.report.Actions[0]
	require.Equal(t, models.ActionLeftUnchanged, kept.Action)
	require.Equal(t, "photo.JPEG", kept.OutputName)
	require.Equal(t, "JPEG", kept.Format)
	require.Equal(t, ".jpeg", kept.DetectedExt)
	require.True(t, strings.EqualFold(kept.OriginalExt, kept.DetectedExt))

	renamed := res.report.Actions[1]
	require.Equal(t, models.ActionRenamed, renamed.Action)
	require.Equal(t, ".jpg", renamed.DetectedExt)
	require.Equal(t, "scan.jpg", renamed.OutputName)
}

func TestActionInvariants(t *testing.T) {
	in := &Inputs{Records: []models.FileRecord{
		models.NewFileRecord("doc.bin", docxBytes(t)),
		models.NewFileRecord("README", []byte("plain words\n")),
		models.NewFileRecord("photo.PNG", pngBytes),
		models.NewFileRecord("x.pdf", []byte("%PDF-1.7\n")),
		models.NewFileRecord("y.gif", []byte("%PDF-1.4\n")),
	}}

	res := runBatch(t, in, models.BatchOperation{}, DefaultReportOptions())

	for _, a := range res.report.Actions {
		switch a.Action {
		case models.ActionRenamed:
			require.NotEqual(t, strings.ToLower(a.OriginalExt), a.DetectedExt)
			require.Equal(t, a.DetectedExt, filepath.Ext(a.OutputName))
		case models.ActionLeftUnchanged:
			require.Equal(t, strings.ToLower(a.OriginalExt), a.DetectedExt)
		}
	}
	require.Equal(t, "README.txt", res.report.Actions[1].OutputName)
	require.Equal(t, "y.pdf", res.report.Actions[4].OutputName)
}

func TestIdempotence(t *testing.T) {
	archive := buildZip(t,
		member{"a.png", pngBytes},
		member{"b.bin", docxBytes(t)},
		member{"c.txt", []byte("hello\n")},
	)
	paths := writeInputs(t, map[string][]byte{"in.zip": archive, "d.dat": []byte("%PDF-1.5")}, "in.zip", "d.dat")

	first := runBatch(t, load(t, paths), models.BatchOperation{}, DefaultReportOptions())
	second := runBatch(t, load(t, paths), models.BatchOperation{}, DefaultReportOptions())

	require.Equal(t, len(first.report.Actions), len(second.report.Actions))
	for i := range first.report.Actions {
		require.Equal(t, first.report.Actions[i].DetectedExt, second.report.Actions[i].DetectedExt)
		require.Equal(t, first.report.Actions[i].Action, second.report.Actions[i].Action)
		require.Equal(t, first.report.Actions[i].OutputName, second.report.Actions[i].OutputName)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	in := &Inputs{Records: []models.FileRecord{models.NewFileRecord("doc.bin", docxBytes(t))}}

	res := runBatch(t, in, models.BatchOperation{DryRun: true, WriteCSV: true}, DefaultReportOptions())

	require.True(t, res.report.DryRun)
	require.Equal(t, "doc.docx", res.report.Actions[0].OutputName)
	require.Empty(t, res.report.Artifacts)
	require.Zero(t, res.report.Stats.BytesWritten)

	entries, err := os.ReadDir(res.outDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestReportsAndBundle(t *testing.T) {
	in := &Inputs{Records: []models.FileRecord{
		models.NewFileRecord("doc.bin", docxBytes(t)),
		models.NewFileRecord("photo.png", pngBytes),
	}}

	reports := DefaultReportOptions()
	reports.BundlePath = filepath.Join(t.TempDir(), "result.zip")

	res := runBatch(t, in, models.BatchOperation{WriteCSV: true}, reports)

	require.Equal(t, []string{report.WorkbookName, report.CSVName, reports.BundlePath}, res.report.Artifacts)
	require.FileExists(t, filepath.Join(res.outDir, report.WorkbookName))
	require.FileExists(t, filepath.Join(res.outDir, report.CSVName))

	zr, err := zip.OpenReader(reports.BundlePath)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"doc.docx", "photo.png", report.CSVName, report.WorkbookName}, names)
}

func TestBundleInsideOutputIsNotSelfContained(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	backend, err := storage.NewLocal(outDir)
	require.NoError(t, err)

	reports := DefaultReportOptions()
	reports.BundlePath = filepath.Join(outDir, "bundle.zip")

	in := &Inputs{Records: []models.FileRecord{models.NewFileRecord("bundle.zip", pngBytes)}}
	res := runWith(t, backend, in, models.BatchOperation{}, reports)

	// the input may not take the bundle's name
	require.Equal(t, "bundle.png", res.report.Actions[0].OutputName)

	zr, err := zip.OpenReader(reports.BundlePath)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		require.NotEqual(t, "bundle.zip", f.Name)
	}
}

func TestCancelledRun(t *testing.T) {
	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(backend, detect.NewDefault(), nil, nil, &models.BatchOperation{}, DefaultReportOptions())
	rep, err := p.Run(ctx, &Inputs{Records: []models.FileRecord{models.NewFileRecord("a.png", pngBytes)}})

	require.Error(t, err)
	require.NotNil(t, rep)
	require.Equal(t, models.StatusCancelled, rep.Status)
}
