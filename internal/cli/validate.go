package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/sigrename/internal/platform"
	"github.com/sdejongh/sigrename/pkg/batch"
	"github.com/sdejongh/sigrename/pkg/config"
	"github.com/sdejongh/sigrename/pkg/models"
)

// validateRunFlags validates the run command flags and arguments
func validateRunFlags(inputs []string) error {
	if len(inputs) == 0 {
		return batch.ErrNoInput
	}

	for _, in := range inputs {
		if err := platform.ValidatePath(in); err != nil {
			return err
		}
	}

	if err := platform.ValidatePath(runFlags.Out); err != nil {
		return err
	}

	// Check output directory
	outInfo, err := os.Stat(runFlags.Out)
	if err == nil && !outInfo.IsDir() {
		return fmt.Errorf("output path exists but is not a directory: %s", runFlags.Out)
	} else if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to access output path: %w", err)
	}

	outAbs, err := filepath.Abs(runFlags.Out)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	// Output must not be inside an input directory, or the next run would
	// pick up its own results
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil || !info.IsDir() {
			continue
		}
		inAbs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("failed to resolve input path: %w", err)
		}
		if platform.IsInside(inAbs, outAbs) {
			return fmt.Errorf("output directory cannot be inside input directory: %s", inAbs)
		}
	}

	if runFlags.Output != "" {
		validFormats := map[string]bool{"human": true, "json": true}
		if !validFormats[runFlags.Output] {
			return fmt.Errorf("invalid output format: %s (valid: human, json)", runFlags.Output)
		}
	}

	if runFlags.LogFormat != "" {
		validLogFormats := map[string]bool{"text": true, "json": true}
		if !validLogFormats[runFlags.LogFormat] {
			return fmt.Errorf("invalid log format: %s (valid: text, json)", runFlags.LogFormat)
		}
	}

	if runFlags.LogLevel != "" {
		validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLogLevels[runFlags.LogLevel] {
			return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", runFlags.LogLevel)
		}
	}

	if runFlags.Bundle != "" && runFlags.NoBundle {
		return fmt.Errorf("--bundle and --no-bundle cannot be used together")
	}

	return nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cfg *config.Config) {
	if runFlags.CSV {
		cfg.Report.CSV = true
	}

	if runFlags.NoBundle {
		cfg.Report.Bundle = false
	}
	if runFlags.Bundle != "" {
		cfg.Report.Bundle = true
	}

	if runFlags.NoArchives {
		cfg.Batch.ExpandArchives = false
	}

	// Exclude patterns add to the configured ones
	if len(runFlags.Exclude) > 0 {
		cfg.Batch.Exclude = append(cfg.Batch.Exclude, runFlags.Exclude...)
	}

	if runFlags.MaxSize != "" {
		cfg.Batch.MaxFileSize = runFlags.MaxSize
	}

	// Output format
	if runFlags.Output != "" {
		cfg.Output.Format = runFlags.Output
	}

	// Logging
	if runFlags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = runFlags.LogFile
	}
	if runFlags.LogFormat != "" {
		cfg.Logging.Format = runFlags.LogFormat
	}
	if runFlags.LogLevel != "" {
		cfg.Logging.Level = runFlags.LogLevel
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Verbose mode logs every file
	if globalFlags.Verbose {
		cfg.Logging.Level = "debug"
	}
}

// createBatchOperation creates a batch operation from configuration
func createBatchOperation(cfg *config.Config, inputs []string) (*models.BatchOperation, error) {
	maxSize, err := cfg.Batch.MaxFileSizeBytes()
	if err != nil {
		return nil, fmt.Errorf("invalid max file size: %w", err)
	}

	operation := &models.BatchOperation{
		ID:              uuid.New().String(),
		Inputs:          inputs,
		OutputPath:      runFlags.Out,
		ExcludePatterns: cfg.Batch.Exclude,
		ExpandArchives:  cfg.Batch.ExpandArchives,
		MaxFileSize:     maxSize,
		WriteCSV:        cfg.Report.CSV,
		DryRun:          runFlags.DryRun,
		CreatedAt:       time.Now(),
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	return operation, nil
}

// reportOptions derives report names and the bundle location. The bundle
// goes next to the output directory unless --bundle gives a path.
func reportOptions(cfg *config.Config, operation *models.BatchOperation) batch.ReportOptions {
	opts := batch.ReportOptions{
		WorkbookName: cfg.Report.WorkbookName,
		CSVName:      cfg.Report.CSVName,
		CSV:          cfg.Report.CSVOptions(),
	}

	if !cfg.Report.Bundle {
		return opts
	}

	name := cfg.Report.BundleName
	if runFlags.Bundle != "" {
		// a bare name is placed like the default, a path is used as is
		if filepath.Base(runFlags.Bundle) != runFlags.Bundle {
			opts.BundlePath = runFlags.Bundle
			return opts
		}
		name = runFlags.Bundle
	}

	out := filepath.Clean(operation.OutputPath)
	opts.BundlePath = filepath.Join(filepath.Dir(out), name)
	return opts
}
