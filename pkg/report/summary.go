package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/sigrename/pkg/models"
	"github.com/sdejongh/sigrename/pkg/signature"
)

// BuildSummary counts action records per detected format. Formats are
// ordered by count descending, then by identifier.
func BuildSummary(actions []models.ActionRecord) models.Summary {
	var s models.Summary
	index := make(map[string]int)

	for _, a := range actions {
		s.Total++
		switch a.Action {
		case models.ActionRenamed:
			s.Renamed++
		case models.ActionFailed:
			s.Failed++
		}

		format := a.Format
		if format == "" {
			format = models.FormatUnknown
		}

		i, ok := index[format]
		if !ok {
			i = len(s.Formats)
			index[format] = i
			ext := a.DetectedExt
			if f, ok := signature.Lookup(format); ok {
				ext = f.Ext
			}
			s.Formats = append(s.Formats, models.FormatCount{Format: format, Ext: ext})
		}

		fc := &s.Formats[i]
		fc.Count++
		fc.Bytes += a.Size
		if a.Action == models.ActionRenamed {
			fc.Renamed++
		}
	}

	sort.SliceStable(s.Formats, func(i, j int) bool {
		if s.Formats[i].Count != s.Formats[j].Count {
			return s.Formats[i].Count > s.Formats[j].Count
		}
		return s.Formats[i].Format < s.Formats[j].Format
	})

	return s
}

// Detected returns the number of files whose format was determined
func Detected(s models.Summary) int {
	n := 0
	for _, fc := range s.Formats {
		if fc.Format != models.FormatUnknown {
			n += fc.Count
		}
	}
	return n
}

// Describe returns the description and recommended viewer for a format
func Describe(format string) (description, viewer string) {
	if f, ok := signature.Lookup(format); ok {
		return f.Description, f.Viewer
	}
	return "(no description)", "-"
}

// FormatSummary renders the summary as text for the terminal
func FormatSummary(s models.Summary) string {
	if Detected(s) == 0 {
		if s.Total == 0 {
			return "No files were processed."
		}
		return fmt.Sprintf("No format was detected in %d file(s).", s.Total)
	}

	var b strings.Builder
	b.WriteString("Found:\n")
	for _, fc := range s.Formats {
		if fc.Format == models.FormatUnknown {
			fmt.Fprintf(&b, "- %d file(s) of unknown format (%s)\n", fc.Count, humanize.Bytes(uint64(fc.Bytes)))
			continue
		}
		desc, viewer := Describe(fc.Format)
		fmt.Fprintf(&b, "- %d file(s) with extension '%s' (%s; recommended software: %s), %d renamed, %s\n",
			fc.Count, fc.Ext, desc, viewer, fc.Renamed, humanize.Bytes(uint64(fc.Bytes)))
	}

	fmt.Fprintf(&b, "\nTotal files with a detected format: %d", Detected(s))
	fmt.Fprintf(&b, "\nRenamed: %d, failed: %d, total: %d", s.Renamed, s.Failed, s.Total)
	return b.String()
}
