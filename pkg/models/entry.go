package models

import (
	"path"
	"strings"
	"time"
)

// FileRecord represents one input file in a batch
type FileRecord struct {
	// Name is the slash-separated path relative to the batch root.
	// Loose files use their base name, archive members keep their internal path.
	Name string

	// Ext is the original extension including the dot, or empty
	Ext string

	// Data is the full file content
	Data []byte

	// Size in bytes
	Size int64

	// Origin is the archive the file was expanded from (empty for loose files)
	Origin string

	// ModTime is carried over to the output copy when set
	ModTime time.Time

	// Err is set when the content could not be read
	Err error
}

// NewFileRecord creates a record for name holding data
func NewFileRecord(name string, data []byte) FileRecord {
	return FileRecord{
		Name: name,
		Ext:  ExtOf(name),
		Data: data,
		Size: int64(len(data)),
	}
}

// NewFailedRecord creates a record for a file whose content could not be read
func NewFailedRecord(name string, err error) FileRecord {
	return FileRecord{
		Name: name,
		Ext:  ExtOf(name),
		Err:  err,
	}
}

// ExtOf returns the extension of the last element of name.
// Dotfiles such as ".profile" have no extension.
func ExtOf(name string) string {
	base := path.Base(name)
	ext := path.Ext(base)
	if ext == base {
		return ""
	}
	return ext
}

// BaseName returns the last element of Name
func (r FileRecord) BaseName() string {
	return path.Base(r.Name)
}

// Basis records how a detection was reached
type Basis string

const (
	// BasisSignature means a byte signature matched
	BasisSignature Basis = "SIGNATURE"
	// BasisHeuristic means a container was refined by inspecting its entries
	BasisHeuristic Basis = "HEURISTIC"
	// BasisUnknown means no signature matched
	BasisUnknown Basis = "UNKNOWN"
)

// FormatUnknown is the identifier reported when nothing matched
const FormatUnknown = "UNKNOWN"

// DetectionResult is the classifier's verdict for one file
type DetectionResult struct {
	// Format is the detected format identifier, e.g. "XLSX" or "PNG"
	Format string

	// Ext is the canonical extension including the dot (empty if undetermined)
	Ext string

	// Aliases are other extensions accepted as correct for Format
	Aliases []string

	Basis Basis
}

// Unknown returns the result used for files nothing matched
func Unknown() DetectionResult {
	return DetectionResult{Format: FormatUnknown, Basis: BasisUnknown}
}

// IsKnown reports whether a format was determined
func (d DetectionResult) IsKnown() bool {
	return d.Basis != BasisUnknown && d.Ext != ""
}

// Matches reports whether ext (with or without the dot) is acceptable for
// the detected format. Comparison is case-insensitive.
func (d DetectionResult) Matches(ext string) bool {
	return d.Accepted(ext) != ""
}

// Accepted returns ext normalized to lower case with a leading dot when it
// is the canonical extension or one of the aliases, and "" otherwise. A
// file kept under an alias records this as its detected extension.
func (d DetectionResult) Accepted(ext string) string {
	if !d.IsKnown() || ext == "" {
		return ""
	}
	ext = normalizeExt(ext)
	if ext == d.Ext {
		return ext
	}
	for _, alias := range d.Aliases {
		if ext == alias {
			return ext
		}
	}
	return ""
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Action represents what was done with a file
type Action string

const (
	// ActionRenamed copies the file under a name carrying the detected extension
	ActionRenamed Action = "RENAMED"
	// ActionCopiedUnchanged copies the file under its original name because
	// no format could be determined. Undetermined files are exempt from the
	// rename rule whatever their extension, so DetectedExt stays empty.
	ActionCopiedUnchanged Action = "COPIED_UNCHANGED"
	// ActionLeftUnchanged copies the file under its original name because
	// its extension already matches the detected format
	ActionLeftUnchanged Action = "LEFT_UNCHANGED"
	// ActionFailed means the file could not be read or written
	ActionFailed Action = "FAILED"
)

// ActionRecord is the outcome for one file
type ActionRecord struct {
	OriginalName string
	OriginalExt  string
	DetectedExt  string
	Format       string
	Basis        Basis
	Action       Action
	OutputName   string
	Origin       string
	Size         int64
	Reason       string
}

// Failed reports whether the file could not be processed
func (a ActionRecord) Failed() bool {
	return a.Action == ActionFailed
}
