package model

// Column is a column of a relation as reported by the catalog.
type Column struct {
	Name     string
	DataType string
	Position int
}

// ColumnSet partitions the columns of a relation. Both lists keep the
// relation's ordinal order and together cover every column exactly once.
type ColumnSet struct {
	Numeric    []string
	NonNumeric []string
}
