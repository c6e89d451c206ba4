package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/mcncl/jsontab/internal/models"
)

// BorderStyle controls table border characters.
type BorderStyle string

const (
	BorderRounded BorderStyle = "rounded" // ╭─╮╰╯│┬┴├┤┼
	BorderASCII   BorderStyle = "ascii"   // +-+|
	BorderNone    BorderStyle = "none"    // space-separated columns
)

var borderStyles = []BorderStyle{BorderRounded, BorderASCII, BorderNone}

// ParseBorder parses a border style name. The empty string means BorderRounded.
func ParseBorder(s string) (BorderStyle, error) {
	if s == "" {
		return BorderRounded, nil
	}
	for _, b := range borderStyles {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown border style %q, want one of %v", s, borderStyles)
}

type borderChars struct {
	topLeft, topRight, bottomLeft, bottomRight string
	horizontal, vertical                       string
	topTee, bottomTee, leftTee, rightTee       string
	cross                                      string
}

var borderSets = map[BorderStyle]borderChars{
	BorderRounded: {
		topLeft: "╭", topRight: "╮", bottomLeft: "╰", bottomRight: "╯",
		horizontal: "─", vertical: "│",
		topTee: "┬", bottomTee: "┴", leftTee: "├", rightTee: "┤",
		cross: "┼",
	},
	BorderASCII: {
		topLeft: "+", topRight: "+", bottomLeft: "+", bottomRight: "+",
		horizontal: "-", vertical: "|",
		topTee: "+", bottomTee: "+", leftTee: "+", rightTee: "+",
		cross: "+",
	},
}

var controlEscaper = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

// writeTable renders the table for a terminal.
func (f *Formatter) writeTable(w io.Writer, t *models.Table) error {
	if t.Width() == 0 {
		return nil
	}

	header := f.header(t)
	for i, h := range header {
		header[i] = controlEscaper.Replace(h)
	}
	rows := escapedRecords(t, controlEscaper.Replace)
	widths := columnWidths(header, rows)

	if f.opts.Border == BorderNone {
		return renderPlainTable(w, header, rows, widths)
	}
	return renderBorderedTable(w, header, rows, widths, borderSets[f.opts.Border])
}

func renderPlainTable(w io.Writer, header []string, rows [][]string, widths []int) error {
	if err := writePlainRow(w, header, widths); err != nil {
		return err
	}
	sep := make([]string, len(widths))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	if _, err := fmt.Fprintln(w, strings.Join(sep, "  ")); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writePlainRow(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

func writePlainRow(w io.Writer, cells []string, widths []int) error {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = padRight(cells[i], width)
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	return err
}

func renderBorderedTable(w io.Writer, header []string, rows [][]string, widths []int, bc borderChars) error {
	if err := drawHLine(w, widths, bc.topLeft, bc.horizontal, bc.topTee, bc.topRight); err != nil {
		return err
	}
	if err := drawBorderedRow(w, header, widths, bc.vertical); err != nil {
		return err
	}
	if err := drawHLine(w, widths, bc.leftTee, bc.horizontal, bc.cross, bc.rightTee); err != nil {
		return err
	}
	for _, row := range rows {
		if err := drawBorderedRow(w, row, widths, bc.vertical); err != nil {
			return err
		}
	}
	return drawHLine(w, widths, bc.bottomLeft, bc.horizontal, bc.bottomTee, bc.bottomRight)
}

func drawHLine(w io.Writer, widths []int, left, fill, mid, right string) error {
	segs := make([]string, len(widths))
	for i, width := range widths {
		segs[i] = strings.Repeat(fill, width+2)
	}
	_, err := fmt.Fprintln(w, left+strings.Join(segs, mid)+right)
	return err
}

func drawBorderedRow(w io.Writer, cells []string, widths []int, vertical string) error {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = " " + padRight(cells[i], width) + " "
	}
	_, err := fmt.Fprintln(w, vertical+strings.Join(parts, vertical)+vertical)
	return err
}
