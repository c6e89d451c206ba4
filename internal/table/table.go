package table

import (
	"sort"

	"github.com/mcncl/jsontab/internal/models"
)

// Duplicate records a cell that overwrote an earlier cell with the same
// label in the same row.
type Duplicate struct {
	Row   int
	Label string
	// Previous is the value that was lost.
	Previous models.Value
	Current  models.Value
}

// Build assembles rows into a dense table. Labels are the sorted union of
// every cell label; rows missing a label get an absent entry. When a row
// repeats a label the later cell wins.
func Build(rows []models.Row) *models.Table {
	t, _ := BuildWithReport(rows)
	return t
}

// BuildWithReport is Build plus the list of overwritten cells, in row order.
func BuildWithReport(rows []models.Row) (*models.Table, []Duplicate) {
	labels := collectLabels(rows)

	index := make(map[string]int, len(labels))
	for j, l := range labels {
		index[l] = j
	}

	var dups []Duplicate
	grid := make([][]models.Value, len(rows))
	for i, r := range rows {
		line := make([]models.Value, len(labels))
		seen := make(map[int]struct{}, len(r.Cells))
		for _, c := range r.Cells {
			j := index[c.Label]
			if _, ok := seen[j]; ok {
				dups = append(dups, Duplicate{Row: i, Label: c.Label, Previous: line[j], Current: c.Value})
			}
			seen[j] = struct{}{}
			line[j] = c.Value
		}
		grid[i] = line
	}

	return &models.Table{Labels: labels, Rows: grid}, dups
}

// collectLabels returns the distinct labels of rows in lexicographic order.
func collectLabels(rows []models.Row) []string {
	set := make(map[string]struct{})
	for _, r := range rows {
		for _, c := range r.Cells {
			set[c.Label] = struct{}{}
		}
	}
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
