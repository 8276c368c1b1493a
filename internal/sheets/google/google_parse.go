package google

import (
	"fmt"
	"strconv"
	"strings"
)

// a1Range is the resolved position of a range such as "Transactions!B9:B5000".
type a1Range struct {
	Sheet    string
	Column   string
	StartRow int
	// EndRow is 0 for open-ended ranges ("B9:B").
	EndRow int
}

// parseA1Range parses the A1 notation the Sheets API returns for a range.
func parseA1Range(s string) (a1Range, error) {
	s = strings.TrimSpace(s)
	idx := strings.LastIndex(s, "!")
	if idx <= 0 {
		return a1Range{}, fmt.Errorf("range %q has no sheet name", s)
	}
	sheet := s[:idx]
	if len(sheet) >= 2 && strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}

	cells := strings.SplitN(s[idx+1:], ":", 2)
	col, row, err := splitCell(cells[0])
	if err != nil {
		return a1Range{}, fmt.Errorf("range %q: %w", s, err)
	}
	if row == 0 {
		row = 1
	}
	out := a1Range{Sheet: sheet, Column: col, StartRow: row}
	if len(cells) == 2 {
		_, end, err := splitCell(cells[1])
		if err != nil {
			return a1Range{}, fmt.Errorf("range %q: %w", s, err)
		}
		out.EndRow = end
	}
	return out, nil
}

// splitCell splits "B12" into ("B", 12); a bare column yields row 0.
func splitCell(cell string) (string, int, error) {
	i := 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		i++
	}
	if i == 0 {
		return "", 0, fmt.Errorf("invalid cell %q", cell)
	}
	if i == len(cell) {
		return cell, 0, nil
	}
	row, err := strconv.Atoi(cell[i:])
	if err != nil || row < 1 {
		return "", 0, fmt.Errorf("invalid cell %q", cell)
	}
	return cell[:i], row, nil
}

// shiftColumn returns the column letters n columns right of col.
func shiftColumn(col string, n int) (string, error) {
	num := 0
	for _, r := range col {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid column %q", col)
		}
		num = num*26 + int(r-'A'+1)
	}
	num += n
	if num < 1 {
		return "", fmt.Errorf("column %q shifted by %d is out of range", col, n)
	}
	var out []byte
	for num > 0 {
		num--
		out = append([]byte{byte('A' + num%26)}, out...)
		num /= 26
	}
	return string(out), nil
}

// quoteSheet quotes a sheet name for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
