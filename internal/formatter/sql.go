package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/mcncl/jsontab/internal/models"
	"github.com/mcncl/jsontab/internal/pgload"
)

// DefaultTableName is the SQL target when Options.TableName is empty.
const DefaultTableName = pgload.DefaultTableName

// writeSQL writes a transaction that creates the target table if needed
// and fills it with a COPY block in PostgreSQL text format. Header styles
// apply to column names here too.
func (f *Formatter) writeSQL(w io.Writer, t *models.Table) error {
	if t.Width() == 0 {
		return nil
	}
	named := &models.Table{Labels: f.header(t), Rows: t.Rows}

	if _, err := fmt.Fprintln(w, "BEGIN;"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, pgload.CreateTableSQL(named, f.opts.TableName)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "COPY %s (%s) FROM stdin;\n",
		pgload.QuoteIdent(f.opts.TableName), pgload.CopyColumnList(named)); err != nil {
		return err
	}

	vals := make([]string, t.Width())
	for _, row := range t.Rows {
		for j, v := range row {
			vals[j] = pgload.EscapeCopyValue(v)
		}
		if _, err := fmt.Fprintln(w, strings.Join(vals, "\t")); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, `\.`); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "COMMIT;")
	return err
}
