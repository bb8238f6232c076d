package detect

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"github.com/sdejongh/sigrename/pkg/signature"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sniffText recognises structured and plain text when no binary signature matched
func sniffText(window []byte) (signature.Format, bool) {
	window = bytes.TrimPrefix(window, utf8BOM)
	if len(window) == 0 || !validUTF8Prefix(window) {
		return signature.Format{}, false
	}

	head := bytes.TrimLeft(window, " \t\r\n")
	lower := bytes.ToLower(head)

	switch {
	case bytes.HasPrefix(head, []byte("{")) || bytes.HasPrefix(head, []byte("[")):
		return signature.MustLookup(signature.JSON), true
	case bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")):
		return signature.MustLookup(signature.HTML), true
	case bytes.HasPrefix(head, []byte("<?xml")):
		return signature.MustLookup(signature.XML), true
	}

	if isPlainText(window) {
		return signature.MustLookup(signature.TXT), true
	}
	return signature.Format{}, false
}

// validUTF8Prefix reports whether b is valid UTF-8, tolerating a rune cut
// off by the end of the window.
func validUTF8Prefix(b []byte) bool {
	if utf8.Valid(b) {
		return true
	}
	for i := 1; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) && !utf8.FullRune(b[len(b)-i:]) {
			return true
		}
	}
	return false
}

// isPlainText rejects control characters other than common whitespace
func isPlainText(b []byte) bool {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			// truncated trailing rune, already validated
			return true
		}
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' && r != '\f' {
			return false
		}
		b = b[size:]
	}
	return true
}
