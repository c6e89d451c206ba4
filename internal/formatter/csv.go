package formatter

import (
	"encoding/csv"
	"io"

	"github.com/mcncl/jsontab/internal/models"
)

// writeDelimited writes a header record followed by one record per row.
// A table without columns produces no output.
func (f *Formatter) writeDelimited(w io.Writer, t *models.Table, delim rune) error {
	if t.Width() == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := writeRecord(w, cw, f.header(t)); err != nil {
		return err
	}
	rec := make([]string, t.Width())
	for _, row := range t.Rows {
		for j, v := range row {
			rec[j] = v.String()
		}
		if err := writeRecord(w, cw, rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeRecord writes rec through cw. encoding/csv renders a record holding
// one empty field as a blank line, which readers skip, so that record is
// written as a quoted empty field instead.
func writeRecord(w io.Writer, cw *csv.Writer, rec []string) error {
	if len(rec) != 1 || rec[0] != "" {
		return cw.Write(rec)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\"\"\n")
	return err
}
