package detect

import (
	"bytes"

	"github.com/sdejongh/sigrename/pkg/heuristic"
	"github.com/sdejongh/sigrename/pkg/models"
	"github.com/sdejongh/sigrename/pkg/signature"
)

// Options controls which detection stages run
type Options struct {
	// Window is the number of leading bytes matched against signatures
	Window int
	// TextSniffing enables JSON/HTML/XML/plain text recognition
	TextSniffing bool
	// Fallback enables the generic magic database for formats missing from the table
	Fallback bool
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		Window:       signature.DefaultWindow,
		TextSniffing: true,
		Fallback:     true,
	}
}

// Classifier turns file bytes into a detection result.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	table *signature.Table
	zips  *heuristic.ZipResolver
	opts  Options
}

// New creates a classifier from a signature table and a zip resolver
func New(table *signature.Table, zips *heuristic.ZipResolver, opts Options) *Classifier {
	if opts.Window < table.MaxLen() {
		opts.Window = table.MaxLen()
	}
	return &Classifier{
		table: table,
		zips:  zips,
		opts:  opts,
	}
}

// NewDefault creates a classifier with the built-in table and rules
func NewDefault() *Classifier {
	return New(signature.DefaultTable(), heuristic.NewZipResolver(heuristic.DefaultZipRules()), DefaultOptions())
}

// Options returns the effective options
func (c *Classifier) Options() Options {
	return c.opts
}

// Classify detects the format of one file. Unreadable or empty files are UNKNOWN.
func (c *Classifier) Classify(rec models.FileRecord) models.DetectionResult {
	if rec.Err != nil || len(rec.Data) == 0 {
		return models.Unknown()
	}
	return c.ClassifyBytes(rec.Data)
}

// ClassifyBytes detects the format of data
func (c *Classifier) ClassifyBytes(data []byte) models.DetectionResult {
	if len(data) == 0 {
		return models.Unknown()
	}

	window := data
	if len(window) > c.opts.Window {
		window = window[:c.opts.Window]
	}

	if f, ok := c.table.Match(window); ok {
		switch f.ID {
		case signature.ZIP:
			// Containers need the whole archive, not just the window.
			if refined, ok := c.zips.Resolve(data); ok {
				return result(refined, models.BasisHeuristic)
			}
		case signature.MKV:
			f = refineEBML(window)
		}
		return result(f, models.BasisSignature)
	}

	if c.opts.Fallback {
		if f, ok := fallback(window); ok {
			return result(f, models.BasisSignature)
		}
	}

	if c.opts.TextSniffing {
		if f, ok := sniffText(window); ok {
			return result(f, models.BasisSignature)
		}
	}

	return models.Unknown()
}

// refineEBML tells WebM from generic Matroska by the DocType element
func refineEBML(window []byte) signature.Format {
	if bytes.Contains(bytes.ToLower(window), []byte("webm")) {
		return signature.MustLookup(signature.WEBM)
	}
	return signature.MustLookup(signature.MKV)
}

func result(f signature.Format, basis models.Basis) models.DetectionResult {
	return models.DetectionResult{
		Format:  f.ID,
		Ext:     f.Ext,
		Aliases: f.Aliases,
		Basis:   basis,
	}
}
