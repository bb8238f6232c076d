package detect

import (
	"strings"

	"github.com/h2non/filetype"

	"github.com/sdejongh/sigrename/pkg/signature"
)

// fallback consults the filetype magic database for formats the table
// does not list. Zip-family results are ignored: containers are only
// classified through the table and the resolver.
func fallback(window []byte) (signature.Format, bool) {
	kind, err := filetype.Match(window)
	if err != nil || kind == filetype.Unknown || kind.Extension == "" {
		return signature.Format{}, false
	}

	ext := "." + strings.ToLower(kind.Extension)
	if f, ok := signature.ByExtension(ext); ok {
		if f.Family == signature.FamilyZip {
			return signature.Format{}, false
		}
		return f, true
	}

	return signature.Format{
		ID:          strings.ToUpper(kind.Extension),
		Ext:         ext,
		Description: kind.MIME.Value,
		Viewer:      "-",
	}, true
}
