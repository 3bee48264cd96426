package model

// Matrix is a correlation matrix read back from an output relation. Cells[i][j]
// holds the value of row i (Variables[i]) in the column named Variables[j]; nil
// marks a NULL cell.
type Matrix struct {
	Variables []string
	Cells     [][]*float64
}

// Cell returns the value at (row, col) and whether it is non-NULL.
func (m *Matrix) Cell(row, col int) (float64, bool) {
	v := m.Cells[row][col]
	if v == nil {
		return 0, false
	}
	return *v, true
}
