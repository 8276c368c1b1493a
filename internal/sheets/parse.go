package sheets

import (
	"strings"

	"aspirebot/internal/core"
)

// Markers used in the first column of the configuration range.
const (
	GroupMarker     = "✦"
	SeparatorMarker = "◘"
)

// excludedGroup matches groups that never receive transactions directly.
const excludedGroup = "Credit Card"

// ParseConfiguration reads configuration rows (marker, name, ...). A row
// marked with GroupMarker opens a group named by its second cell; groups
// whose name contains "Credit Card" are skipped together with their rows.
// SeparatorMarker rows are ignored. Any other row with a name is a category
// of the open group; rows before the first group belong to none.
func ParseConfiguration(rows [][]string) []core.CategoryGroup {
	var (
		groups  []core.CategoryGroup
		current = -1
	)
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		marker := strings.TrimSpace(row[0])
		name := strings.TrimSpace(row[1])
		switch marker {
		case GroupMarker:
			if name == "" || strings.Contains(name, excludedGroup) {
				current = -1
				continue
			}
			groups = append(groups, core.CategoryGroup{Name: name})
			current = len(groups) - 1
		case SeparatorMarker:
		default:
			if current < 0 || name == "" {
				continue
			}
			groups[current].Categories = append(groups[current].Categories, name)
		}
	}
	return groups
}

// Flatten returns the non-empty cells of rows in row-major order.
func Flatten(rows [][]string) []string {
	var out []string
	for _, row := range rows {
		for _, v := range row {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
