package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/sigrename/pkg/models"
	"github.com/sdejongh/sigrename/pkg/report"
)

// JSONFormatter prints the whole batch report as one JSON document
type JSONFormatter struct {
	writer io.Writer
	errors []string
}

// JSONReportData represents the final report
type JSONReportData struct {
	OperationID string           `json:"operation_id"`
	Output      string           `json:"output"`
	DryRun      bool             `json:"dry_run"`
	Status      string           `json:"status"`
	Duration    string           `json:"duration"`
	DurationMs  int64            `json:"duration_ms"`
	Stats       JSONStatsData    `json:"stats"`
	Formats     []JSONFormatData `json:"formats"`
	Files       []JSONFileData   `json:"files"`
	Artifacts   []string         `json:"artifacts,omitempty"`
	Errors      []string         `json:"errors,omitempty"`
}

// JSONStatsData represents the batch statistics
type JSONStatsData struct {
	FilesScanned   int   `json:"files_scanned"`
	FilesRenamed   int   `json:"files_renamed"`
	FilesUnchanged int   `json:"files_unchanged"`
	FilesUnknown   int   `json:"files_unknown"`
	FilesFailed    int   `json:"files_failed"`
	ArchivesOpened int   `json:"archives_opened"`
	FilesExcluded  int   `json:"files_excluded"`
	BytesScanned   int64 `json:"bytes_scanned"`
	BytesWritten   int64 `json:"bytes_written"`
}

// JSONFormatData is one line of the format summary
type JSONFormatData struct {
	Format      string `json:"format"`
	Extension   string `json:"extension,omitempty"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count"`
	Renamed     int    `json:"renamed"`
	Bytes       int64  `json:"bytes"`
}

// JSONFileData is the outcome for one file
type JSONFileData struct {
	Name        string `json:"name"`
	OriginalExt string `json:"original_ext,omitempty"`
	DetectedExt string `json:"detected_ext,omitempty"`
	Format      string `json:"format"`
	Basis       string `json:"basis"`
	Action      string `json:"action"`
	Output      string `json:"output,omitempty"`
	Origin      string `json:"origin,omitempty"`
	Size        int64  `json:"size"`
	Reason      string `json:"reason,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	return nil
}

// Progress is silent so the output stays one parseable document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete encodes the report
func (f *JSONFormatter) Complete(rep *models.BatchReport) error {
	if f.writer == nil {
		f.writer = os.Stdout
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.reportData(rep))
}

func (f *JSONFormatter) reportData(rep *models.BatchReport) JSONReportData {
	data := JSONReportData{
		OperationID: rep.OperationID,
		Output:      rep.OutputPath,
		DryRun:      rep.DryRun,
		Status:      string(rep.Status),
		Duration:    rep.Duration.Round(time.Millisecond).String(),
		DurationMs:  rep.Duration.Milliseconds(),
		Stats: JSONStatsData{
			FilesScanned:   rep.Stats.FilesScanned,
			FilesRenamed:   rep.Stats.FilesRenamed,
			FilesUnchanged: rep.Stats.FilesUnchanged,
			FilesUnknown:   rep.Stats.FilesUnknown,
			FilesFailed:    rep.Stats.FilesFailed,
			ArchivesOpened: rep.Stats.ArchivesOpened,
			FilesExcluded:  rep.Stats.FilesExcluded,
			BytesScanned:   rep.Stats.BytesScanned,
			BytesWritten:   rep.Stats.BytesWritten,
		},
		Formats:   []JSONFormatData{},
		Files:     make([]JSONFileData, 0, len(rep.Actions)),
		Artifacts: rep.Artifacts,
		Errors:    f.errors,
	}

	for _, fc := range report.BuildSummary(rep.Actions).Formats {
		entry := JSONFormatData{
			Format:    fc.Format,
			Extension: fc.Ext,
			Count:     fc.Count,
			Renamed:   fc.Renamed,
			Bytes:     fc.Bytes,
		}
		if fc.Format != models.FormatUnknown {
			entry.Description, _ = report.Describe(fc.Format)
		}
		data.Formats = append(data.Formats, entry)
	}

	for _, a := range rep.Actions {
		data.Files = append(data.Files, JSONFileData{
			Name:        a.OriginalName,
			OriginalExt: a.OriginalExt,
			DetectedExt: a.DetectedExt,
			Format:      a.Format,
			Basis:       string(a.Basis),
			Action:      string(a.Action),
			Output:      a.OutputName,
			Origin:      a.Origin,
			Size:        a.Size,
			Reason:      a.Reason,
		})
	}

	return data
}

// Error records an error; it is printed as a document of its own
func (f *JSONFormatter) Error(err error) error {
	f.errors = append(f.errors, err.Error())
	if f.writer == nil {
		f.writer = os.Stdout
	}
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]string{"status": "error", "error": err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
