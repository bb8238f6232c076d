package signature

import (
	"bytes"
	"fmt"
)

// DefaultWindow is the number of leading bytes read for detection.
// It covers every signature in the default table and leaves room for the
// EBML DocType and text sniffing.
const DefaultWindow = 4096

// Part is a byte sequence expected at a fixed offset.
// Bytes between parts are not inspected.
type Part struct {
	Offset int
	Bytes  []byte
}

// Entry maps a set of fixed-offset parts to a format identifier
type Entry struct {
	Format string
	Parts  []Part
}

// at builds a Part
func at(offset int, b string) Part {
	return Part{Offset: offset, Bytes: []byte(b)}
}

// sig builds an Entry
func sig(format string, parts ...Part) Entry {
	return Entry{Format: format, Parts: parts}
}

// Match reports whether window satisfies every part of the entry
func (e Entry) Match(window []byte) bool {
	if len(e.Parts) == 0 {
		return false
	}
	for _, p := range e.Parts {
		end := p.Offset + len(p.Bytes)
		if end > len(window) {
			return false
		}
		if !bytes.Equal(window[p.Offset:end], p.Bytes) {
			return false
		}
	}
	return true
}

// Len returns the number of bytes needed to evaluate the entry
func (e Entry) Len() int {
	n := 0
	for _, p := range e.Parts {
		if end := p.Offset + len(p.Bytes); end > n {
			n = end
		}
	}
	return n
}

// constraints flattens the parts into offset -> byte
func (e Entry) constraints() map[int]byte {
	m := make(map[int]byte)
	for _, p := range e.Parts {
		for i, b := range p.Bytes {
			m[p.Offset+i] = b
		}
	}
	return m
}

// Covers reports whether every window matching other also matches e,
// i.e. e is at least as generic as other.
func (e Entry) Covers(other Entry) bool {
	mine := e.constraints()
	theirs := other.constraints()
	for off, b := range mine {
		if ob, ok := theirs[off]; !ok || ob != b {
			return false
		}
	}
	return true
}

// String renders the entry as offset:hex pairs
func (e Entry) String() string {
	var buf bytes.Buffer
	buf.WriteString(e.Format)
	for _, p := range e.Parts {
		fmt.Fprintf(&buf, " @%d:%X", p.Offset, p.Bytes)
	}
	return buf.String()
}

// OrderError reports a generic entry placed before a more specific one
type OrderError struct {
	Generic  Entry
	Specific Entry
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("signature %q shadows more specific %q", e.Generic.String(), e.Specific.String())
}

// Table is an ordered list of signatures, first match wins
type Table struct {
	entries []Entry
	maxLen  int
}

// NewTable creates a table, rejecting orderings where a generic entry
// precedes an entry it covers.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{entries: make([]Entry, len(entries))}
	copy(t.entries, entries)

	for i, e := range t.entries {
		if len(e.Parts) == 0 {
			return nil, fmt.Errorf("signature %d (%s) has no parts", i, e.Format)
		}
		if _, ok := Lookup(e.Format); !ok {
			return nil, fmt.Errorf("signature %d references unknown format %q", i, e.Format)
		}
		if n := e.Len(); n > t.maxLen {
			t.maxLen = n
		}
		for j := i + 1; j < len(t.entries); j++ {
			later := t.entries[j]
			if e.Covers(later) && !later.Covers(e) {
				return nil, &OrderError{Generic: e, Specific: later}
			}
		}
	}

	return t, nil
}

// MustNewTable is like NewTable but panics on error
func MustNewTable(entries []Entry) *Table {
	t, err := NewTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Match returns the first entry matching window
func (t *Table) Match(window []byte) (Format, bool) {
	for _, e := range t.entries {
		if e.Match(window) {
			return MustLookup(e.Format), true
		}
	}
	return Format{}, false
}

// Entries returns the entries in match order
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// MaxLen returns the window length needed to evaluate every entry
func (t *Table) MaxLen() int {
	return t.maxLen
}

// defaultEntries is the built-in table. Entries refining a shared prefix
// (ftyp brands, RIFF chunks, Ogg codecs, BMP header sizes) come before the
// generic form.
var defaultEntries = []Entry{
	// ISO base media: specific brands first, generic ftyp last
	sig(HEIC, at(4, "ftypheic")),
	sig(HEIC, at(4, "ftypheix")),
	sig(HEIC, at(4, "ftypheif")),
	sig(HEIC, at(4, "ftypmif1")),
	sig(HEIC, at(4, "ftypmsf1")),
	sig(M4A, at(4, "ftypM4A ")),
	sig(MOV, at(4, "ftypqt  ")),
	sig(MP4, at(4, "ftyp")),

	// Images
	sig(JPEG, at(0, "\xFF\xD8\xFF")),
	sig(PNG, at(0, "\x89PNG\r\n\x1a\n")),
	sig(GIF, at(0, "GIF87a")),
	sig(GIF, at(0, "GIF89a")),
	sig(TIFF, at(0, "II*\x00")),
	sig(TIFF, at(0, "MM\x00*")),
	sig(PSD, at(0, "8BPS")),
	sig(ICO, at(0, "\x00\x00\x01\x00")),

	// RIFF containers
	sig(WEBP, at(0, "RIFF"), at(8, "WEBP")),
	sig(WAV, at(0, "RIFF"), at(8, "WAVE")),
	sig(AVI, at(0, "RIFF"), at(8, "AVI ")),

	// Audio
	sig(FLAC, at(0, "fLaC")),
	sig(MP3, at(0, "ID3")),
	sig(MP3, at(0, "\xFF\xFB")),
	sig(MP3, at(0, "\xFF\xF3")),
	sig(MP3, at(0, "\xFF\xF2")),
	sig(OPUS, at(0, "OggS"), at(28, "OpusHead")),
	sig(OGG, at(0, "OggS")),

	// EBML, refined to WebM by DocType
	sig(MKV, at(0, "\x1A\x45\xDF\xA3")),

	// Documents
	sig(PDF, at(0, "%PDF")),
	sig(RTF, at(0, "{\\rtf")),

	// ZIP family: local file header, empty archive, spanned archive
	sig(ZIP, at(0, "PK\x03\x04")),
	sig(ZIP, at(0, "PK\x05\x06")),
	sig(ZIP, at(0, "PK\x07\x08")),

	// Archives and streams
	sig(SEVENZ, at(0, "7z\xBC\xAF\x27\x1C")),
	sig(GZIP, at(0, "\x1F\x8B\x08")),
	sig(BZIP2, at(0, "BZh")),
	sig(XZ, at(0, "\xFD7zXZ\x00")),
	sig(RAR, at(0, "Rar!\x1A\x07\x01\x00")),
	sig(RAR, at(0, "Rar!\x1A\x07\x00")),

	sig(SQLITE, at(0, "SQLite format 3\x00")),

	// Fonts
	sig(WOFF, at(0, "wOFF")),
	sig(WOFF2, at(0, "wOF2")),
	sig(OTF, at(0, "OTTO")),
	sig(TTF, at(0, "\x00\x01\x00\x00")),
	sig(TTF, at(0, "true")),

	// Executables
	sig(ELF, at(0, "\x7FELF")),

	// Two-byte magics last, guarded where the format allows it
	sig(BMP, at(0, "BM"), at(14, "\x28\x00\x00\x00")),
	sig(BMP, at(0, "BM"), at(14, "\x0C\x00\x00\x00")),
	sig(BMP, at(0, "BM"), at(14, "\x34\x00\x00\x00")),
	sig(BMP, at(0, "BM"), at(14, "\x38\x00\x00\x00")),
	sig(BMP, at(0, "BM"), at(14, "\x6C\x00\x00\x00")),
	sig(BMP, at(0, "BM"), at(14, "\x7C\x00\x00\x00")),
	sig(EXE, at(0, "MZ")),
}

// DefaultEntries returns a copy of the built-in table entries
func DefaultEntries() []Entry {
	out := make([]Entry, len(defaultEntries))
	copy(out, defaultEntries)
	return out
}

// DefaultTable returns the built-in table
func DefaultTable() *Table {
	return MustNewTable(defaultEntries)
}
