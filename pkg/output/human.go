package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/sdejongh/sigrename/pkg/models"
	"github.com/sdejongh/sigrename/pkg/report"
)

var (
	renamedMark = color.New(color.FgGreen).SprintFunc()
	keptMark    = color.New(color.FgCyan).SprintFunc()
	unknownMark = color.New(color.FgYellow).SprintFunc()
	errorMark   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// HumanFormatter prints one line per file and a summary at the end
type HumanFormatter struct {
	writer     io.Writer
	totalFiles int
	totalBytes int64
	startTime  time.Time
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.totalFiles = totalFiles
	f.totalBytes = totalBytes
	f.startTime = time.Now()

	fmt.Fprintf(writer, "Processing %d files, %s total\n", totalFiles, humanize.Bytes(uint64(totalBytes)))
	return nil
}

// Progress prints the outcome of each file
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil {
		return nil
	}

	switch update.Type {
	case "file_complete":
		fmt.Fprintf(f.writer, "[%d/%d] %s %s\n",
			update.CurrentFile, update.TotalFiles, actionMark(update.Action), describeUpdate(update))
	case "file_error":
		fmt.Fprintf(f.writer, "[%d/%d] %s %s: %v\n",
			update.CurrentFile, update.TotalFiles, errorMark("✗"), update.FilePath, update.Error)
	}
	return nil
}

func actionMark(a models.Action) string {
	switch a {
	case models.ActionRenamed:
		return renamedMark("→")
	case models.ActionLeftUnchanged:
		return keptMark("✓")
	case models.ActionCopiedUnchanged:
		return unknownMark("?")
	default:
		return errorMark("✗")
	}
}

func describeUpdate(u ProgressUpdate) string {
	switch u.Action {
	case models.ActionRenamed:
		return fmt.Sprintf("%s → %s (%s)", u.FilePath, u.OutputName, u.Format)
	case models.ActionCopiedUnchanged:
		return fmt.Sprintf("%s (unknown format)", u.FilePath)
	default:
		if u.OutputName != "" && u.OutputName != u.FilePath {
			return fmt.Sprintf("%s as %s (%s)", u.FilePath, u.OutputName, u.Format)
		}
		return fmt.Sprintf("%s (%s)", u.FilePath, u.Format)
	}
}

// Complete prints the statistics, the format summary and the artifacts
func (f *HumanFormatter) Complete(rep *models.BatchReport) error {
	if f.writer == nil {
		f.writer = os.Stdout
	}
	writeSummary(f.writer, rep)
	return nil
}

// writeSummary prints the end-of-batch block shared by the line and bar formatters
func writeSummary(w io.Writer, rep *models.BatchReport) {
	fmt.Fprintf(w, "\n")
	if rep.DryRun {
		fmt.Fprintf(w, "Dry run completed in %s (nothing was written)\n", rep.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "Batch completed in %s\n", rep.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Files:\n")
	fmt.Fprintf(w, "    Scanned:            %d\n", rep.Stats.FilesScanned)
	fmt.Fprintf(w, "    Renamed:            %d\n", rep.Stats.FilesRenamed)
	fmt.Fprintf(w, "    Already correct:    %d\n", rep.Stats.FilesUnchanged)
	fmt.Fprintf(w, "    Unknown format:     %d\n", rep.Stats.FilesUnknown)
	fmt.Fprintf(w, "    Failed:             %d\n", rep.Stats.FilesFailed)
	if rep.Stats.ArchivesOpened > 0 || rep.Stats.FilesExcluded > 0 {
		fmt.Fprintf(w, "    Archives expanded:  %d\n", rep.Stats.ArchivesOpened)
		fmt.Fprintf(w, "    Excluded:           %d\n", rep.Stats.FilesExcluded)
	}
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Data:\n")
	fmt.Fprintf(w, "    Read:               %s\n", humanize.Bytes(uint64(rep.Stats.BytesScanned)))
	fmt.Fprintf(w, "    Written:            %s\n", humanize.Bytes(uint64(rep.Stats.BytesWritten)))
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "%s\n", report.FormatSummary(report.BuildSummary(rep.Actions)))

	if len(rep.Artifacts) > 0 {
		fmt.Fprintf(w, "\nReports:\n")
		for _, a := range rep.Artifacts {
			fmt.Fprintf(w, "  %s\n", a)
		}
	}

	fmt.Fprintf(w, "\nStatus: %s\n", rep.Status)

	if rep.Stats.FilesFailed > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, a := range rep.Actions {
			if a.Failed() {
				fmt.Fprintf(w, "  %s: %s\n", a.OriginalName, a.Reason)
			}
		}
	}
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer == nil {
		f.writer = os.Stderr
	}
	fmt.Fprintf(f.writer, "%s %v\n", errorMark("Error:"), err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}
