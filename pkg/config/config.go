package config

import (
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/sigrename/pkg/batch"
	"github.com/sdejongh/sigrename/pkg/bundle"
	"github.com/sdejongh/sigrename/pkg/models"
	"github.com/sdejongh/sigrename/pkg/report"
	"github.com/sdejongh/sigrename/pkg/signature"
)

// Config represents the application configuration
type Config struct {
	Detection DetectionConfig `yaml:"detection"`
	Batch     BatchConfig     `yaml:"batch"`
	Report    ReportConfig    `yaml:"report"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DetectionConfig holds classifier settings
type DetectionConfig struct {
	Window       int  `yaml:"window"`        // Leading bytes matched against signatures
	TextSniffing bool `yaml:"text_sniffing"` // Recognise JSON/HTML/XML/plain text
	Fallback     bool `yaml:"fallback"`      // Generic magic database for formats missing from the table
}

// BatchConfig holds input handling settings
type BatchConfig struct {
	ExpandArchives bool     `yaml:"expand_archives"`
	MaxFileSize    string   `yaml:"max_file_size"` // e.g. "200MB", empty = unlimited
	Exclude        []string `yaml:"exclude"`
}

// ReportConfig holds report and bundle settings
type ReportConfig struct {
	CSV          bool   `yaml:"csv"`
	WorkbookName string `yaml:"workbook_name"`
	CSVName      string `yaml:"csv_name"`
	CSVDelimiter string `yaml:"csv_delimiter"`
	CSVBOM       bool   `yaml:"csv_bom"`
	Bundle       bool   `yaml:"bundle"`
	BundleName   string `yaml:"bundle_name"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show a progress bar on terminals
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = no log)
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Detection: DetectionConfig{
			Window:       signature.DefaultWindow,
			TextSniffing: true,
			Fallback:     true,
		},
		Batch: BatchConfig{
			ExpandArchives: true,
			MaxFileSize:    "",
			Exclude:        append([]string(nil), batch.DefaultExcludePatterns...),
		},
		Report: ReportConfig{
			CSV:          false,
			WorkbookName: report.WorkbookName,
			CSVName:      report.CSVName,
			CSVDelimiter: ";",
			CSVBOM:       true,
			Bundle:       true,
			BundleName:   bundle.DefaultName,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Format:     "json",
			Level:      "info",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// MaxFileSizeBytes parses batch.max_file_size (0 = unlimited)
func (b BatchConfig) MaxFileSizeBytes() (int64, error) {
	if b.MaxFileSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(b.MaxFileSize)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// Delimiter returns the CSV delimiter as a rune
func (r ReportConfig) Delimiter() rune {
	d, _ := utf8.DecodeRuneInString(r.CSVDelimiter)
	return d
}

// CSVOptions returns the CSV dialect described by the report section
func (r ReportConfig) CSVOptions() report.CSVOptions {
	return report.CSVOptions{Delimiter: r.Delimiter(), BOM: r.CSVBOM}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Detection.Window < 16 {
		return &models.ValidationError{
			Field:   "detection.window",
			Message: "must be at least 16 bytes",
		}
	}

	if _, err := c.Batch.MaxFileSizeBytes(); err != nil {
		return &models.ValidationError{
			Field:   "batch.max_file_size",
			Message: "must be a size such as '200MB' (" + err.Error() + ")",
		}
	}

	if _, err := batch.NewExcluder(c.Batch.Exclude); err != nil {
		return &models.ValidationError{
			Field:   "batch.exclude",
			Message: err.Error(),
		}
	}

	if c.Report.WorkbookName == "" || c.Report.CSVName == "" {
		return &models.ValidationError{
			Field:   "report",
			Message: "workbook_name and csv_name must not be empty",
		}
	}

	if c.Report.Bundle && c.Report.BundleName == "" {
		return &models.ValidationError{
			Field:   "report.bundle_name",
			Message: "must not be empty when bundling is enabled",
		}
	}

	if utf8.RuneCountInString(c.Report.CSVDelimiter) != 1 {
		return &models.ValidationError{
			Field:   "report.csv_delimiter",
			Message: "must be a single character",
		}
	}
	if d := c.Report.Delimiter(); d == '"' || d == '\r' || d == '\n' || d == utf8.RuneError {
		return &models.ValidationError{
			Field:   "report.csv_delimiter",
			Message: "must not be a quote or line break",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSizeMB < 1 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging",
			Message: "max_size_mb must be at least 1 and max_backups not negative",
		}
	}

	return nil
}
