package formatter

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
	"github.com/xuri/excelize/v2"

	"github.com/mcncl/jsontab/internal/models"
)

// DefaultSheetName is the sheet excelize creates in a new workbook.
const DefaultSheetName = "Sheet1"

// writeXLSX writes a single-sheet workbook. Every cell is stored as a
// string; absent entries are left blank.
func (f *Formatter) writeXLSX(w io.Writer, t *models.Table) (err error) {
	if t.Width() > excelize.MaxColumns {
		return fmt.Errorf("table has %d columns, xlsx allows at most %d", t.Width(), excelize.MaxColumns)
	}
	if t.Len()+1 > excelize.TotalRows {
		return fmt.Errorf("table has %d rows, xlsx allows at most %d", t.Len(), excelize.TotalRows-1)
	}

	book := excelize.NewFile()
	defer func() {
		if cerr := book.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sheet := SanitizeSheetName(f.opts.SheetName)
	if sheet != DefaultSheetName {
		if err := book.SetSheetName(DefaultSheetName, sheet); err != nil {
			return fmt.Errorf("naming sheet %q: %w", sheet, err)
		}
	}

	for j, label := range f.header(t) {
		if err := setText(book, sheet, j+1, 1, label); err != nil {
			return err
		}
	}
	for i, row := range t.Rows {
		for j, v := range row {
			if !v.Valid {
				continue
			}
			if err := setText(book, sheet, j+1, i+2, v.Str); err != nil {
				return err
			}
		}
	}

	return book.Write(w)
}

func setText(book *excelize.File, sheet string, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return book.SetCellStr(sheet, cell, value)
}

// SanitizeSheetName makes name acceptable to Excel: forbidden characters
// are dropped, surrounding apostrophes trimmed and the result cut to 31
// characters. An empty result falls back to DefaultSheetName.
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if utf8.RuneCountInString(name) > excelize.MaxSheetNameLength {
		name = string([]rune(name)[:excelize.MaxSheetNameLength])
	}
	if name == "" {
		return DefaultSheetName
	}
	return name
}

// SheetNameFromPath derives a sheet name from an input file name, e.g.
// "daily-report.json" becomes "DailyReport".
func SheetNameFromPath(path string) string {
	if path == "" {
		return DefaultSheetName
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return SanitizeSheetName(strcase.ToCamel(base))
}
