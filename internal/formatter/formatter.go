package formatter

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/mcncl/jsontab/internal/errors"
	"github.com/mcncl/jsontab/internal/models"
)

// Format represents an output format.
type Format string

const (
	CSV      Format = "csv"
	TSV      Format = "tsv"
	XLSX     Format = "xlsx"
	Markdown Format = "markdown"
	Table    Format = "table"
	SQL      Format = "sql"
)

var formats = []Format{CSV, TSV, XLSX, Markdown, Table, SQL}

// String returns the format name.
func (f Format) String() string { return string(f) }

// Binary reports whether the format produces non-text output.
func (f Format) Binary() bool { return f == XLSX }

// Formats returns all supported format names.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// ParseFormat parses a format name, case-insensitively. "md" and "excel"
// are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "md":
		return Markdown, nil
	case "excel":
		return XLSX, nil
	}
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, s)
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV, true
	case ".tsv", ".tab":
		return TSV, true
	case ".xlsx":
		return XLSX, true
	case ".md", ".markdown":
		return Markdown, true
	case ".sql":
		return SQL, true
	case ".txt":
		return Table, true
	default:
		return "", false
	}
}

// HeaderStyle rewrites header labels segment by segment for display.
type HeaderStyle string

const (
	HeaderAsIs       HeaderStyle = "none"
	HeaderSnake      HeaderStyle = "snake"
	HeaderCamel      HeaderStyle = "camel"
	HeaderLowerCamel HeaderStyle = "lower_camel"
	HeaderKebab      HeaderStyle = "kebab"
)

var headerStyles = []HeaderStyle{HeaderAsIs, HeaderSnake, HeaderCamel, HeaderLowerCamel, HeaderKebab}

// ParseHeaderStyle parses a header style name. The empty string means HeaderAsIs.
func ParseHeaderStyle(s string) (HeaderStyle, error) {
	if s == "" {
		return HeaderAsIs, nil
	}
	for _, h := range headerStyles {
		if string(h) == s {
			return h, nil
		}
	}
	return "", fmt.Errorf("unknown header style %q, want one of %v", s, headerStyles)
}

// Apply rewrites each "/"-separated segment of label.
func (h HeaderStyle) Apply(label string) string {
	var conv func(string) string
	switch h {
	case HeaderSnake:
		conv = strcase.ToSnake
	case HeaderCamel:
		conv = strcase.ToCamel
	case HeaderLowerCamel:
		conv = strcase.ToLowerCamel
	case HeaderKebab:
		conv = strcase.ToKebab
	default:
		return label
	}
	segs := strings.Split(label, "/")
	for i, s := range segs {
		segs[i] = conv(s)
	}
	return strings.Join(segs, "/")
}

// Options configures a Formatter. Zero values select defaults.
type Options struct {
	// Delimiter separates CSV fields. Default: comma.
	Delimiter rune
	// SheetName names the XLSX sheet. Default: Sheet1.
	SheetName string
	// TableName is the target of the SQL format. Default: jsontab.
	TableName   string
	HeaderStyle HeaderStyle
	Border      BorderStyle
}

// Formatter serializes tables. It never inspects JSON shapes; every format
// consumes the same header and dense grid.
type Formatter struct {
	opts Options
}

// NewFormatter creates a new Formatter instance
func NewFormatter(opts Options) *Formatter {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.SheetName == "" {
		opts.SheetName = DefaultSheetName
	}
	if opts.TableName == "" {
		opts.TableName = DefaultTableName
	}
	if opts.HeaderStyle == "" {
		opts.HeaderStyle = HeaderAsIs
	}
	if opts.Border == "" {
		opts.Border = BorderRounded
	}
	return &Formatter{opts: opts}
}

// Write serializes t in format f to w.
func (f *Formatter) Write(w io.Writer, t *models.Table, format Format) error {
	if err := f.checkHeader(t); err != nil {
		return err
	}
	switch format {
	case CSV:
		return f.writeDelimited(w, t, f.opts.Delimiter)
	case TSV:
		return f.writeDelimited(w, t, '\t')
	case XLSX:
		return f.writeXLSX(w, t)
	case Markdown:
		return f.writeMarkdown(w, t)
	case Table:
		return f.writeTable(w, t)
	case SQL:
		return f.writeSQL(w, t)
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, format)
	}
}

// Marshal serializes t in format f and returns the bytes.
func (f *Formatter) Marshal(t *models.Table, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf, t, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// checkHeader fails when the header style turns two distinct labels into
// the same column name.
func (f *Formatter) checkHeader(t *models.Table) error {
	if f.opts.HeaderStyle == HeaderAsIs {
		return nil
	}
	seen := make(map[string]string, t.Width())
	for _, l := range t.Labels {
		name := f.opts.HeaderStyle.Apply(l)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%w: %q and %q both become %q under %s",
				errors.ErrHeaderCollision, prev, l, name, f.opts.HeaderStyle)
		}
		seen[name] = l
	}
	return nil
}

// header returns the display labels of t.
func (f *Formatter) header(t *models.Table) []string {
	out := t.Header()
	for i, l := range out {
		out[i] = f.opts.HeaderStyle.Apply(l)
	}
	return out
}
