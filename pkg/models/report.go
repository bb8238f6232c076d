package models

import (
	"time"
)

// BatchReport represents the results of a batch run
type BatchReport struct {
	// Operation details
	OperationID string
	OutputPath  string
	DryRun      bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Statistics
	Stats Statistics

	// One record per input file, in input order
	Actions []ActionRecord

	// Artifacts written next to the processed files (workbook, csv)
	Artifacts []string

	// Overall status
	Status BatchStatus
}

// Statistics holds batch metrics
type Statistics struct {
	FilesScanned   int
	FilesRenamed   int
	FilesUnchanged int // extension already correct
	FilesUnknown   int // copied without a detected format
	FilesFailed    int
	ArchivesOpened int
	FilesExcluded  int
	BytesScanned   int64
	BytesWritten   int64
}

// Record updates the statistics for one action record
func (s *Statistics) Record(a ActionRecord) {
	s.FilesScanned++
	s.BytesScanned += a.Size
	switch a.Action {
	case ActionRenamed:
		s.FilesRenamed++
	case ActionLeftUnchanged:
		s.FilesUnchanged++
	case ActionCopiedUnchanged:
		s.FilesUnknown++
	case ActionFailed:
		s.FilesFailed++
	}
}

// BatchStatus represents the overall result
type BatchStatus string

const (
	// StatusSuccess indicates all files were processed
	StatusSuccess BatchStatus = "success"
	// StatusPartial indicates some files failed
	StatusPartial BatchStatus = "partial"
	// StatusFailed indicates the run failed
	StatusFailed BatchStatus = "failed"
	// StatusCancelled indicates the run was cancelled
	StatusCancelled BatchStatus = "cancelled"
)

// ExitCode returns the appropriate exit code for the batch status
func (s BatchStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}

// FormatCount is one row of the per-format summary
type FormatCount struct {
	Format  string
	Ext     string
	Count   int
	Renamed int
	Bytes   int64
}

// Summary maps detected formats to counts, derived from action records only
type Summary struct {
	Formats []FormatCount
	Total   int
	Renamed int
	Failed  int
}
