package models

import (
	"time"
)

// BatchOperation represents a batch run configuration
type BatchOperation struct {
	ID              string
	Inputs          []string
	OutputPath      string
	ExcludePatterns []string
	ExpandArchives  bool
	MaxFileSize     int64 // bytes, 0 = unlimited
	WriteCSV        bool
	DryRun          bool
	CreatedAt       time.Time
}

// Validate checks if the operation configuration is valid
func (op *BatchOperation) Validate() error {
	if len(op.Inputs) == 0 {
		return &ValidationError{Field: "Inputs", Message: "at least one input is required"}
	}
	if op.OutputPath == "" {
		return &ValidationError{Field: "OutputPath", Message: "output path is required"}
	}
	if op.MaxFileSize < 0 {
		return &ValidationError{Field: "MaxFileSize", Message: "max file size cannot be negative"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
