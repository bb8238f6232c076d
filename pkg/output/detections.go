package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/sigrename/pkg/models"
)

// Detection is the verdict for one file inspected without copying it
type Detection struct {
	Name   string
	Size   int64
	Result models.DetectionResult
	// Suggested is the name the file would be given, empty when it is kept
	Suggested string
	Err       error
}

// WriteDetections prints detection verdicts in "human" or "json" format
func WriteDetections(w io.Writer, detections []Detection, format string) error {
	switch format {
	case "json":
		return writeDetectionsJSON(w, detections)
	case "", "human", "progress":
		return writeDetectionsHuman(w, detections)
	default:
		return fmt.Errorf("unknown output format: %s (valid: human, json)", format)
	}
}

func writeDetectionsHuman(w io.Writer, detections []Detection) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "FILE\tSIZE\tFORMAT\tBASIS\tSUGGESTED\n")

	for _, d := range detections {
		if d.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t%s\t-\t%v\n", d.Name, errorMark("ERROR"), d.Err)
			continue
		}
		suggested := d.Suggested
		if suggested == "" {
			suggested = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.Name, humanize.Bytes(uint64(d.Size)), d.Result.Format, d.Result.Basis, suggested)
	}

	return tw.Flush()
}

func writeDetectionsJSON(w io.Writer, detections []Detection) error {
	type entry struct {
		Name      string `json:"name"`
		Size      int64  `json:"size"`
		Format    string `json:"format,omitempty"`
		Extension string `json:"extension,omitempty"`
		Basis     string `json:"basis,omitempty"`
		Suggested string `json:"suggested,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	out := make([]entry, 0, len(detections))
	for _, d := range detections {
		e := entry{Name: d.Name, Size: d.Size}
		if d.Err != nil {
			e.Error = d.Err.Error()
		} else {
			e.Format = d.Result.Format
			e.Extension = d.Result.Ext
			e.Basis = string(d.Result.Basis)
			e.Suggested = d.Suggested
		}
		out = append(out, e)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
