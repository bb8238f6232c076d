package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sdejongh/sigrename/pkg/batch"
	"github.com/sdejongh/sigrename/pkg/config"
	"github.com/sdejongh/sigrename/pkg/detect"
	"github.com/sdejongh/sigrename/pkg/heuristic"
	"github.com/sdejongh/sigrename/pkg/logging"
	"github.com/sdejongh/sigrename/pkg/models"
	"github.com/sdejongh/sigrename/pkg/output"
	"github.com/sdejongh/sigrename/pkg/signature"
	"github.com/sdejongh/sigrename/pkg/storage"
)

// RunFlags holds run command flags
type RunFlags struct {
	Out        string
	CSV        bool
	Bundle     string
	NoBundle   bool
	NoArchives bool
	Exclude    []string
	MaxSize    string
	Output     string
	DryRun     bool
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var runFlags RunFlags

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <inputs...>",
		Short: "Detect file types and copy files under corrected names",
		Long: `Read every input file (zip archives are expanded), detect the real
format of each file from its leading bytes, and copy it into the output
directory under a name carrying the right extension. A spreadsheet report,
an optional CSV report and a zip bundle of the output are written at the end.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}

	cmd.Flags().StringVarP(&runFlags.Out, "out", "d", "", "output directory (required)")
	cmd.MarkFlagRequired("out")

	cmd.Flags().BoolVar(&runFlags.CSV, "csv", false, "also write the report as CSV")
	cmd.Flags().StringVar(&runFlags.Bundle, "bundle", "", "bundle file path (default: next to the output directory)")
	cmd.Flags().BoolVar(&runFlags.NoBundle, "no-bundle", false, "do not package the output into a zip bundle")
	cmd.Flags().BoolVar(&runFlags.NoArchives, "no-archives", false, "treat zip inputs as plain files instead of expanding them")
	cmd.Flags().StringSliceVar(&runFlags.Exclude, "exclude", []string{}, "glob patterns to exclude")
	cmd.Flags().StringVar(&runFlags.MaxSize, "max-size", "", "skip files larger than this (e.g. \"200MB\")")
	cmd.Flags().StringVarP(&runFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().BoolVar(&runFlags.DryRun, "dry-run", false, "classify only, write nothing")

	// Logging flags
	cmd.Flags().StringVar(&runFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(&runFlags.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&runFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Validate flags
	if err := validateRunFlags(args); err != nil {
		return err
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	applyFlagsToConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	report, err := executeRun(ctx, cfg, args, os.Stdout)
	if err != nil {
		if errors.Is(err, batch.ErrNoInput) {
			return err
		}
		return fmt.Errorf("batch failed: %w", err)
	}

	// Exit with appropriate code
	os.Exit(report.Status.ExitCode())
	return nil
}

// executeRun wires the pipeline for inputs according to cfg and runs it
func executeRun(ctx context.Context, cfg *config.Config, inputs []string, stdout io.Writer) (*models.BatchReport, error) {
	operation, err := createBatchOperation(cfg, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch operation: %w", err)
	}

	// Create logger
	logger, err := createLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	logger = logger.WithFields(logging.Fields{"operation_id": operation.ID})

	excluder, err := batch.NewExcluder(operation.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	in, err := batch.LoadInputs(ctx, operation.Inputs, batch.LoadOptions{
		ExpandArchives: operation.ExpandArchives,
		MaxFileSize:    operation.MaxFileSize,
		Exclude:        excluder,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	// Create storage backend
	backend, err := storage.NewLocal(operation.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output backend: %w", err)
	}
	defer backend.Close()

	formatter, err := createFormatter(cfg, stdout)
	if err != nil {
		return nil, err
	}

	processor := batch.NewProcessor(
		backend,
		createClassifier(cfg),
		formatter,
		logger,
		operation,
		reportOptions(cfg, operation),
	)

	return processor.Run(ctx, in)
}

// createClassifier builds the classifier from the detection section
func createClassifier(cfg *config.Config) *detect.Classifier {
	return detect.New(
		signature.DefaultTable(),
		heuristic.NewZipResolver(heuristic.DefaultZipRules()),
		detect.Options{
			Window:       cfg.Detection.Window,
			TextSniffing: cfg.Detection.TextSniffing,
			Fallback:     cfg.Detection.Fallback,
		},
	)
}

// createFormatter picks the formatter for the configured output. The
// progress bar is only used on terminals; nil means no console output.
func createFormatter(cfg *config.Config, stdout io.Writer) (output.Formatter, error) {
	if cfg.Output.Quiet && cfg.Output.Format != "json" {
		return nil, nil
	}

	name := cfg.Output.Format
	if name == "human" && cfg.Output.Progress && isTerminal(stdout) {
		name = "progress"
	}

	formatter, err := output.New(name)
	if err != nil {
		return nil, err
	}
	return &writerFormatter{Formatter: formatter, w: stdout}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writerFormatter binds a formatter to a writer chosen by the command
type writerFormatter struct {
	output.Formatter
	w io.Writer
}

func (f *writerFormatter) Start(_ io.Writer, totalFiles int, totalBytes int64) error {
	return f.Formatter.Start(f.w, totalFiles, totalBytes)
}

// createLogger creates a logger based on configuration
func createLogger(cfg *config.Config) (logging.Logger, error) {
	// If no log file specified, return null logger
	if !cfg.Logging.Enabled || cfg.Logging.File == "" {
		return logging.Discard, nil
	}

	// Parse log format
	var format logging.Format
	switch cfg.Logging.Format {
	case "json":
		format = logging.FormatJSON
	default:
		format = logging.FormatText
	}

	// Create file logger
	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.Logging.File,
		Format:     format,
		Level:      logging.ParseLevel(cfg.Logging.Level),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}
