package pgload

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/mcncl/jsontab/internal/models"
)

// DefaultTableName is used when no target table is configured.
const DefaultTableName = "jsontab"

// Identifier splits a possibly schema-qualified name into a pgx.Identifier.
func Identifier(name string) pgx.Identifier {
	if name == "" {
		name = DefaultTableName
	}
	return pgx.Identifier(strings.Split(name, "."))
}

// QuoteIdent returns name as a quoted, schema-qualified SQL identifier.
func QuoteIdent(name string) string {
	return Identifier(name).Sanitize()
}

// maxIdentLen is the byte length at which PostgreSQL truncates identifiers.
const maxIdentLen = 63

// ColumnNames maps table labels to distinct column names. PostgreSQL rejects
// empty identifiers, so an empty label becomes "columnN" after its position.
// Names are cut to maxIdentLen bytes and any name already taken gets a
// numbered suffix. Real labels claim their names before the fallbacks do.
func ColumnNames(t *models.Table) []string {
	cols := make([]string, len(t.Labels))
	taken := make(map[string]bool, len(t.Labels))
	claim := func(j int, base string) {
		name := truncateIdent(base, maxIdentLen)
		for n := 2; taken[name]; n++ {
			suffix := fmt.Sprintf("_%d", n)
			name = truncateIdent(base, maxIdentLen-len(suffix)) + suffix
		}
		taken[name] = true
		cols[j] = name
	}

	for j, l := range t.Labels {
		if l != "" {
			claim(j, l)
		}
	}
	for j, l := range t.Labels {
		if l == "" {
			claim(j, fmt.Sprintf("column%d", j+1))
		}
	}
	return cols
}

// truncateIdent cuts s to at most n bytes without splitting a rune.
func truncateIdent(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// CreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement with one
// text column per label.
func CreateTableSQL(t *models.Table, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", QuoteIdent(name))
	for j, col := range ColumnNames(t) {
		if j > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "\n    %s text", pgx.Identifier{col}.Sanitize())
	}
	if t.Width() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String()
}

// CopyColumnList returns the quoted, comma separated column list.
func CopyColumnList(t *models.Table) string {
	cols := ColumnNames(t)
	for j, c := range cols {
		cols[j] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(cols, ", ")
}

// EscapeCopyValue escapes a single value for PostgreSQL COPY text format.
// Absent is represented as \N.
func EscapeCopyValue(v models.Value) string {
	if !v.Valid {
		return `\N`
	}
	return escapeString(v.Str)
}

// escapeString applies COPY text format escaping.
func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
