package batch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/sdejongh/sigrename/pkg/bundle"
	"github.com/sdejongh/sigrename/pkg/logging"
	"github.com/sdejongh/sigrename/pkg/models"
	"github.com/sdejongh/sigrename/pkg/output"
	"github.com/sdejongh/sigrename/pkg/report"
	"github.com/sdejongh/sigrename/pkg/storage"
)

// Classifier determines the format of one file
type Classifier interface {
	Classify(rec models.FileRecord) models.DetectionResult
}

// ReportOptions controls the artifacts written after the files
type ReportOptions struct {
	WorkbookName string
	CSVName      string
	CSV          report.CSVOptions

	// BundlePath is the zip archive the output directory is packaged
	// into once everything is written (empty disables bundling)
	BundlePath string
}

// DefaultReportOptions returns the conventional report names
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		WorkbookName: report.WorkbookName,
		CSVName:      report.CSVName,
		CSV:          report.DefaultCSVOptions(),
	}
}

// Processor runs a batch: classify every file, copy it into the output
// backend under its original or corrected name, then write the reports.
// Files are handled one at a time in input order.
type Processor struct {
	backend    storage.Backend
	classifier Classifier
	formatter  output.Formatter
	logger     logging.Logger
	operation  *models.BatchOperation
	reports    ReportOptions
}

// NewProcessor creates a new batch processor
func NewProcessor(
	backend storage.Backend,
	classifier Classifier,
	formatter output.Formatter,
	logger logging.Logger,
	operation *models.BatchOperation,
	reports ReportOptions,
) *Processor {
	if logger == nil {
		logger = logging.Discard
	}
	if reports.WorkbookName == "" {
		reports.WorkbookName = report.WorkbookName
	}
	if reports.CSVName == "" {
		reports.CSVName = report.CSVName
	}
	if reports.BundlePath != "" {
		if abs, err := filepath.Abs(reports.BundlePath); err == nil {
			reports.BundlePath = abs
		}
	}

	return &Processor{
		backend:    backend,
		classifier: classifier,
		formatter:  formatter,
		logger:     logger,
		operation:  operation,
		reports:    reports,
	}
}

// Run processes the inputs and returns the batch report. Per-file problems
// are recorded as FAILED actions; an error is only returned when there is
// nothing to process, the output cannot be listed or written, or ctx ends.
func (p *Processor) Run(ctx context.Context, in *Inputs) (*models.BatchReport, error) {
	if in == nil || len(in.Records) == 0 {
		return nil, ErrNoInput
	}

	rep := &models.BatchReport{
		OperationID: p.operation.ID,
		OutputPath:  p.backend.Root(),
		DryRun:      p.operation.DryRun,
		StartTime:   time.Now(),
		Status:      models.StatusSuccess,
		Actions:     make([]models.ActionRecord, 0, len(in.Records)),
	}
	rep.Stats.ArchivesOpened = in.ArchivesOpened
	rep.Stats.FilesExcluded = in.Excluded

	p.logger.Info(ctx, "Starting batch", logging.Fields{
		"operation_id": p.operation.ID,
		"output":       p.backend.Root(),
		"files":        len(in.Records),
		"dry_run":      p.operation.DryRun,
	})

	// Phase 1: reserve names already present in the output
	names, err := p.seedNames(ctx)
	if err != nil {
		rep.Status = models.StatusFailed
		if ctx.Err() != nil {
			rep.Status = models.StatusCancelled
		}
		return p.finish(ctx, rep, err)
	}

	var totalBytes int64
	for _, rec := range in.Records {
		totalBytes += rec.Size
	}
	if p.formatter != nil {
		p.formatter.Start(nil, len(in.Records), totalBytes)
	}

	// Phase 2: classify and copy every file
	for i, rec := range in.Records {
		if err := ctx.Err(); err != nil {
			rep.Status = models.StatusCancelled
			return p.finish(ctx, rep, err)
		}

		p.progress(output.ProgressUpdate{
			Type:        "file_start",
			FilePath:    rec.Name,
			Size:        rec.Size,
			CurrentFile: i + 1,
			TotalFiles:  len(in.Records),
		})

		action := p.process(ctx, rec, names)
		rep.Actions = append(rep.Actions, action)
		rep.Stats.Record(action)

		update := output.ProgressUpdate{
			Type:        "file_complete",
			FilePath:    rec.Name,
			OutputName:  action.OutputName,
			Format:      action.Format,
			Action:      action.Action,
			Size:        rec.Size,
			CurrentFile: i + 1,
			TotalFiles:  len(in.Records),
		}
		if action.Failed() {
			update.Type = "file_error"
			update.Error = fmt.Errorf("%s", action.Reason)
		} else if !p.operation.DryRun {
			rep.Stats.BytesWritten += action.Size
		}
		p.progress(update)
	}

	// Phase 3: reports and bundle
	if !p.operation.DryRun {
		if err := p.writeReports(ctx, rep); err != nil {
			rep.Status = models.StatusFailed
			return p.finish(ctx, rep, err)
		}
		if err := p.writeBundle(ctx, rep); err != nil {
			rep.Status = models.StatusFailed
			return p.finish(ctx, rep, err)
		}
	}

	if failed := rep.Stats.FilesFailed; failed > 0 {
		if failed == len(rep.Actions) {
			rep.Status = models.StatusFailed
		} else {
			rep.Status = models.StatusPartial
		}
	}

	return p.finish(ctx, rep, nil)
}

func (p *Processor) finish(ctx context.Context, rep *models.BatchReport, runErr error) (*models.BatchReport, error) {
	rep.EndTime = time.Now()
	rep.Duration = rep.EndTime.Sub(rep.StartTime)

	if p.formatter != nil {
		if runErr != nil {
			p.formatter.Error(runErr)
		} else {
			p.formatter.Complete(rep)
		}
	}

	fields := logging.Fields{
		"duration":        rep.Duration.String(),
		"status":          rep.Status,
		"files_scanned":   rep.Stats.FilesScanned,
		"files_renamed":   rep.Stats.FilesRenamed,
		"files_unchanged": rep.Stats.FilesUnchanged,
		"files_unknown":   rep.Stats.FilesUnknown,
		"files_failed":    rep.Stats.FilesFailed,
		"bytes_written":   rep.Stats.BytesWritten,
	}
	if runErr != nil {
		p.logger.Error(ctx, "Batch aborted", runErr, fields)
	} else {
		p.logger.Info(ctx, "Batch completed", fields)
	}

	return rep, runErr
}

func (p *Processor) progress(update output.ProgressUpdate) {
	if p.formatter != nil {
		p.formatter.Progress(update)
	}
}

// seedNames reserves every path already present in the output and the
// report names, so no output ever overwrites another.
func (p *Processor) seedNames(ctx context.Context) (*nameAllocator, error) {
	existing, err := p.backend.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("output is not accessible: %w", err)
	}

	names := newNameAllocator(p.reports.WorkbookName, p.reports.CSVName)
	for _, e := range existing {
		if e.IsDir {
			names.reserveDir(e.RelativePath)
		} else {
			names.reserve(e.RelativePath)
		}
	}
	if rel, ok := p.bundleRelPath(); ok {
		names.reserve(rel)
	}
	return names, nil
}

// process classifies one file, decides its action and copies it
func (p *Processor) process(ctx context.Context, rec models.FileRecord, names *nameAllocator) models.ActionRecord {
	det := p.classifier.Classify(rec)

	action := models.ActionRecord{
		OriginalName: rec.Name,
		OriginalExt:  rec.Ext,
		DetectedExt:  det.Ext,
		Format:       det.Format,
		Basis:        det.Basis,
		Origin:       rec.Origin,
		Size:         rec.Size,
	}

	if rec.Err != nil {
		action.Action = models.ActionFailed
		action.Reason = rec.Err.Error()
		p.logger.Warn(ctx, "File could not be read", logging.ActionFields(action))
		return action
	}

	var target string
	action.Action, target = Decide(rec, det)
	action.OutputName = names.alloc(target)
	if action.Action == models.ActionLeftUnchanged {
		action.DetectedExt = det.Accepted(rec.Ext)
	}

	p.logger.Debug(ctx, "File classified", logging.ActionFields(action))

	if p.operation.DryRun {
		return action
	}

	var meta *storage.FileInfo
	if !rec.ModTime.IsZero() {
		meta = &storage.FileInfo{ModTime: rec.ModTime}
	}

	if err := p.backend.Write(ctx, action.OutputName, bytes.NewReader(rec.Data), rec.Size, meta); err != nil {
		p.logger.Error(ctx, "File could not be written", err, logging.ActionFields(action))
		action.Action = models.ActionFailed
		action.Reason = err.Error()
		action.OutputName = ""
	}

	return action
}

// writeReports writes the workbook and, when requested, the flat CSV
func (p *Processor) writeReports(ctx context.Context, rep *models.BatchReport) error {
	summary := report.BuildSummary(rep.Actions)

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, rep.Actions, summary); err != nil {
		return err
	}
	if err := p.backend.Write(ctx, p.reports.WorkbookName, &buf, int64(buf.Len()), nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", p.reports.WorkbookName, err)
	}
	rep.Artifacts = append(rep.Artifacts, p.reports.WorkbookName)

	if !p.operation.WriteCSV {
		return nil
	}

	buf.Reset()
	if err := report.WriteCSV(&buf, rep.Actions, p.reports.CSV); err != nil {
		return err
	}
	if err := p.backend.Write(ctx, p.reports.CSVName, &buf, int64(buf.Len()), nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", p.reports.CSVName, err)
	}
	rep.Artifacts = append(rep.Artifacts, p.reports.CSVName)

	return nil
}

// bundleRelPath returns the bundle path relative to the output root when
// the bundle is written inside it
func (p *Processor) bundleRelPath() (string, bool) {
	if p.reports.BundlePath == "" {
		return "", false
	}
	rel, err := filepath.Rel(p.backend.Root(), p.reports.BundlePath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// writeBundle zips the output directory into the configured bundle path
func (p *Processor) writeBundle(ctx context.Context, rep *models.BatchReport) error {
	if p.reports.BundlePath == "" {
		return nil
	}

	var skip []string
	if rel, ok := p.bundleRelPath(); ok {
		skip = append(skip, rel)
	}

	var buf bytes.Buffer
	n, err := bundle.Write(ctx, p.backend, &buf, skip...)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(p.reports.BundlePath, &buf); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	if err := os.Chmod(p.reports.BundlePath, 0644); err != nil {
		return fmt.Errorf("failed to set bundle permissions: %w", err)
	}

	p.logger.Info(ctx, "Output bundled", logging.Fields{
		"bundle": p.reports.BundlePath,
		"files":  n,
	})
	rep.Artifacts = append(rep.Artifacts, p.reports.BundlePath)
	return nil
}
