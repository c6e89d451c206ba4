package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/mcncl/jsontab/internal/models"
)

var markdownEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>", "\r", "<br>")

func (f *Formatter) writeMarkdown(w io.Writer, t *models.Table) error {
	if t.Width() == 0 {
		return nil
	}

	header := f.header(t)
	for i, h := range header {
		header[i] = markdownEscaper.Replace(h)
	}
	rows := escapedRecords(t, markdownEscaper.Replace)

	// Minimum 3 so the separator row stays valid.
	widths := columnWidths(header, rows)
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	if err := writeMarkdownRow(w, header, widths); err != nil {
		return err
	}
	sep := make([]string, len(widths))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	if _, err := fmt.Fprintf(w, "| %s |\n", strings.Join(sep, " | ")); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writeMarkdownRow(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

func writeMarkdownRow(w io.Writer, cells []string, widths []int) error {
	padded := make([]string, len(widths))
	for i, width := range widths {
		padded[i] = padRight(cells[i], width)
	}
	_, err := fmt.Fprintf(w, "| %s |\n", strings.Join(padded, " | "))
	return err
}

// escapedRecords renders the grid as strings with esc applied to every cell.
func escapedRecords(t *models.Table, esc func(string) string) [][]string {
	rows := t.Records()
	for _, row := range rows {
		for j, cell := range row {
			row[j] = esc(cell)
		}
	}
	return rows
}

// columnWidths returns the display width of the widest cell per column.
func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func padRight(s string, width int) string {
	if gap := width - runewidth.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
