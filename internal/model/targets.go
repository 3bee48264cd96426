package model

// TargetSpec is the caller's request: either every numeric column or an
// explicit list that may contain duplicates, non-numeric or unknown names.
type TargetSpec struct {
	All     bool
	Columns []string
}

// ResolvedTargets are the numeric columns that make up the output matrix, in
// output order, together with the requested columns that were dropped.
type ResolvedTargets struct {
	Targets            []string
	IgnoredNonNumeric  []string
	IgnoredNonexistent []string
}
