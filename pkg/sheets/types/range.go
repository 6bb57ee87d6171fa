package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a parsed A1 range. Columns are zero-based, rows are one-based.
// A zero StartRow or EndRow means the range is unbounded on that side.
type Range struct {
	Sheet    string
	StartCol int
	EndCol   int
	StartRow int
	EndRow   int
}

// ParseRange parses "<sheet>!<cell>[:<cell>]" where a cell is column letters
// followed by an optional row number. Sheet names may be single-quoted.
func ParseRange(a1 string) (Range, error) {
	idx := strings.LastIndex(a1, "!")
	if idx <= 0 || idx == len(a1)-1 {
		return Range{}, fmt.Errorf("invalid range %q: expected <sheet>!<cells>", a1)
	}

	sheet := a1[:idx]
	if len(sheet) >= 2 && strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}

	parts := strings.Split(a1[idx+1:], ":")
	if len(parts) > 2 {
		return Range{}, fmt.Errorf("invalid range %q: too many ':'", a1)
	}

	startCol, startRow, err := parseCell(parts[0])
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", a1, err)
	}

	endCol, endRow := startCol, startRow
	if len(parts) == 2 {
		endCol, endRow, err = parseCell(parts[1])
		if err != nil {
			return Range{}, fmt.Errorf("invalid range %q: %w", a1, err)
		}
	}

	if endCol < startCol {
		return Range{}, fmt.Errorf("invalid range %q: columns out of order", a1)
	}
	if startRow > 0 && endRow > 0 && endRow < startRow {
		return Range{}, fmt.Errorf("invalid range %q: rows out of order", a1)
	}

	return Range{
		Sheet:    sheet,
		StartCol: startCol,
		EndCol:   endCol,
		StartRow: startRow,
		EndRow:   endRow,
	}, nil
}

// Width is the number of columns covered by the range
func (r Range) Width() int {
	return r.EndCol - r.StartCol + 1
}

// Contains reports whether a one-based row number falls inside the range
func (r Range) Contains(row int) bool {
	if r.StartRow > 0 && row < r.StartRow {
		return false
	}
	if r.EndRow > 0 && row > r.EndRow {
		return false
	}
	return true
}

func (r Range) String() string {
	start := ColumnName(r.StartCol)
	end := ColumnName(r.EndCol)
	if r.StartRow > 0 {
		start += strconv.Itoa(r.StartRow)
	}
	if r.EndRow > 0 {
		end += strconv.Itoa(r.EndRow)
	}
	return fmt.Sprintf("%s!%s:%s", r.Sheet, start, end)
}

// ColumnName converts a zero-based column index to letters (0 -> A, 26 -> AA)
func ColumnName(col int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name
}

func parseCell(cell string) (col, row int, err error) {
	i := 0
	for i < len(cell) && isLetter(cell[i]) {
		i++
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("cell %q has no column", cell)
	}

	for _, c := range strings.ToUpper(cell[:i]) {
		col = col*26 + int(c-'A') + 1
	}
	col--

	if i == len(cell) {
		return col, 0, nil
	}

	row, err = strconv.Atoi(cell[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("cell %q has an invalid row", cell)
	}
	return col, row, nil
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
