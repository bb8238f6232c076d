package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sdejongh/sigrename/pkg/batch"
	"github.com/sdejongh/sigrename/pkg/config"
	"github.com/sdejongh/sigrename/pkg/models"
	"github.com/sdejongh/sigrename/pkg/output"
)

// DetectFlags holds detect command flags
type DetectFlags struct {
	Output     string
	NoArchives bool
}

var detectFlags DetectFlags

// NewDetectCommand creates the detect command
func NewDetectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <files...>",
		Short: "Show the detected format of files without copying them",
		Long: `Classify files by their leading bytes and print the detected format,
how it was reached and the name each file would be given by "run".
Nothing is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if detectFlags.Output != "" {
				cfg.Output.Format = detectFlags.Output
			}
			if detectFlags.NoArchives {
				cfg.Batch.ExpandArchives = false
			}

			return runDetect(ctx, cfg, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&detectFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().BoolVar(&detectFlags.NoArchives, "no-archives", false, "classify zip inputs as files instead of their members")

	return cmd
}

// runDetect classifies inputs the same way run does and prints the verdicts
func runDetect(ctx context.Context, cfg *config.Config, inputs []string, w io.Writer) error {
	excluder, err := batch.NewExcluder(cfg.Batch.Exclude)
	if err != nil {
		return err
	}

	maxSize, err := cfg.Batch.MaxFileSizeBytes()
	if err != nil {
		return fmt.Errorf("invalid max file size: %w", err)
	}

	in, err := batch.LoadInputs(ctx, inputs, batch.LoadOptions{
		ExpandArchives: cfg.Batch.ExpandArchives,
		MaxFileSize:    maxSize,
		Exclude:        excluder,
	})
	if err != nil {
		return err
	}

	classifier := createClassifier(cfg)
	detections := make([]output.Detection, 0, len(in.Records))

	for _, rec := range in.Records {
		d := output.Detection{Name: rec.Name, Size: rec.Size, Err: rec.Err}
		if rec.Origin != "" {
			d.Name = rec.Origin + ":" + rec.Name
		}
		if rec.Err == nil {
			d.Result = classifier.Classify(rec)
			if action, name := batch.Decide(rec, d.Result); action == models.ActionRenamed {
				d.Suggested = name
			}
		}
		detections = append(detections, d)
	}

	return output.WriteDetections(w, detections, cfg.Output.Format)
}
