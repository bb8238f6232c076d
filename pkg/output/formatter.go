package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/sigrename/pkg/models"
)

// ProgressUpdate represents a progress notification during a batch
type ProgressUpdate struct {
	Type        string // "file_start", "file_complete", "file_error"
	FilePath    string
	OutputName  string
	Format      string
	Action      models.Action
	Size        int64
	CurrentFile int
	TotalFiles  int
	Error       error
}

// Formatter defines the interface for output formatting
// Implementations include human-readable, JSON and progress bar formatters
type Formatter interface {
	// Start initializes the formatter for a new batch
	Start(writer io.Writer, totalFiles int, totalBytes int64) error

	// Progress reports progress during the batch
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays summary
	Complete(report *models.BatchReport) error

	// Error reports an error during the batch
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter registered under name
func New(name string) (Formatter, error) {
	switch name {
	case "", "human":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "progress":
		return NewProgressFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: human, json, progress)", name)
	}
}
