package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/sdejongh/sigrename/pkg/models"
)

// CSVOptions controls the flat report dialect
type CSVOptions struct {
	Delimiter rune
	// BOM prefixes the output with a UTF-8 byte order mark so spreadsheet
	// applications detect the encoding
	BOM bool
}

// DefaultCSVOptions returns the semicolon-separated dialect with a BOM
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ';', BOM: true}
}

// WriteCSV writes the per-file rows of the report, without the summary
func WriteCSV(w io.Writer, actions []models.ActionRecord, opts CSVOptions) error {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}

	if opts.BOM {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write byte order mark: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = opts.Delimiter

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, a := range actions {
		if err := cw.Write(Row(a)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
