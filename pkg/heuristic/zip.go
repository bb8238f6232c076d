package heuristic

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/sdejongh/sigrename/pkg/signature"
)

// mimetypeEntry is the uncompressed first entry of EPUB and OpenDocument files
const mimetypeEntry = "mimetype"

// maxMimetypeRead bounds how much of the mimetype entry is inspected
const maxMimetypeRead = 160

// MarkerKind selects how a marker is compared against entry names
type MarkerKind int

const (
	// Exact matches an entry name exactly
	Exact MarkerKind = iota
	// Prefix matches any entry whose name starts with the value
	Prefix
	// Suffix matches any entry whose name ends with the value
	Suffix
)

// Marker is one entry name condition
type Marker struct {
	Kind  MarkerKind
	Value string
}

// String renders the marker as a name pattern, e.g. "word/*" or "*.class"
func (m Marker) String() string {
	switch m.Kind {
	case Prefix:
		return m.Value + "*"
	case Suffix:
		return "*" + m.Value
	default:
		return m.Value
	}
}

func (m Marker) present(names []string, exact map[string]struct{}) bool {
	if m.Kind == Exact {
		_, ok := exact[m.Value]
		return ok
	}
	for _, n := range names {
		switch m.Kind {
		case Prefix:
			if strings.HasPrefix(n, m.Value) {
				return true
			}
		case Suffix:
			if strings.HasSuffix(n, m.Value) {
				return true
			}
		}
	}
	return false
}

// Rule refines a generic ZIP into Format when every marker is present and,
// if Mimetype is set, the mimetype entry starts with it.
type Rule struct {
	Format   string
	Markers  []Marker
	Mimetype string
}

// DefaultZipRules is the built-in rule set in priority order
func DefaultZipRules() []Rule {
	return []Rule{
		{Format: signature.DOCX, Markers: []Marker{{Exact, "[Content_Types].xml"}, {Prefix, "word/"}}},
		{Format: signature.XLSX, Markers: []Marker{{Exact, "[Content_Types].xml"}, {Prefix, "xl/"}}},
		{Format: signature.PPTX, Markers: []Marker{{Exact, "[Content_Types].xml"}, {Prefix, "ppt/"}}},
		{Format: signature.APK, Markers: []Marker{{Exact, "AndroidManifest.xml"}, {Exact, "classes.dex"}}},
		{Format: signature.JAR, Markers: []Marker{{Exact, "META-INF/MANIFEST.MF"}, {Suffix, ".class"}}},
		{Format: signature.EPUB, Markers: []Marker{{Exact, mimetypeEntry}}, Mimetype: "application/epub+zip"},
		{Format: signature.ODT, Markers: []Marker{{Exact, mimetypeEntry}}, Mimetype: "application/vnd.oasis.opendocument.text"},
		{Format: signature.ODS, Markers: []Marker{{Exact, mimetypeEntry}}, Mimetype: "application/vnd.oasis.opendocument.spreadsheet"},
		{Format: signature.ODP, Markers: []Marker{{Exact, mimetypeEntry}}, Mimetype: "application/vnd.oasis.opendocument.presentation"},
	}
}

// ZipResolver refines ZIP containers by their entry listing
type ZipResolver struct {
	rules []Rule
}

// NewZipResolver creates a resolver evaluating rules in order
func NewZipResolver(rules []Rule) *ZipResolver {
	r := make([]Rule, len(rules))
	copy(r, rules)
	return &ZipResolver{rules: r}
}

// Rules returns the rules in priority order
func (z *ZipResolver) Rules() []Rule {
	out := make([]Rule, len(z.rules))
	copy(out, z.rules)
	return out
}

// Resolve inspects the archive held in data. It returns the refined format
// and true when a rule matched, or the generic ZIP format and false when no
// rule matched or the archive could not be read.
func (z *ZipResolver) Resolve(data []byte) (signature.Format, bool) {
	generic := signature.MustLookup(signature.ZIP)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return generic, false
	}

	names := make([]string, 0, len(zr.File))
	exact := make(map[string]struct{}, len(zr.File))
	var mimetype *zip.File
	for _, f := range zr.File {
		names = append(names, f.Name)
		exact[f.Name] = struct{}{}
		if f.Name == mimetypeEntry && mimetype == nil {
			mimetype = f
		}
	}

	var mimeValue []byte
	mimeRead := false

	for _, rule := range z.rules {
		if !rule.matchNames(names, exact) {
			continue
		}
		if rule.Mimetype != "" {
			if !mimeRead {
				mimeValue = readMimetype(mimetype)
				mimeRead = true
			}
			if !bytes.HasPrefix(bytes.TrimSpace(mimeValue), []byte(rule.Mimetype)) {
				continue
			}
			// The ODF types are prefixes of their template variants,
			// so require an exact value or a separator after it.
			rest := bytes.TrimSpace(mimeValue)[len(rule.Mimetype):]
			if len(rest) > 0 && rest[0] == '-' {
				continue
			}
		}
		if f, ok := signature.Lookup(rule.Format); ok {
			return f, true
		}
	}

	return generic, false
}

func (r Rule) matchNames(names []string, exact map[string]struct{}) bool {
	for _, m := range r.Markers {
		if !m.present(names, exact) {
			return false
		}
	}
	return true
}

// readMimetype returns the leading bytes of the mimetype entry, or nil when
// it is absent, encrypted or unreadable.
func readMimetype(f *zip.File) []byte {
	if f == nil || f.Flags&0x1 != 0 {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()

	buf, err := io.ReadAll(io.LimitReader(rc, maxMimetypeRead))
	if err != nil && len(buf) == 0 {
		return nil
	}
	return buf
}
