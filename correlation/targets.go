package correlation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

const (
	positionColumn = "column_position"
	variableColumn = "variable"
)

// ParseTargetSpec interprets the caller's target column list. An empty or
// whitespace-only value, or "*", selects every numeric column. Otherwise all
// whitespace is removed and the value is split on commas, dropping empty
// entries.
func ParseTargetSpec(raw string) model.TargetSpec {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" || cleaned == "*" {
		return model.TargetSpec{All: true}
	}
	return model.TargetSpec{
		Columns: lo.Compact(strings.Split(cleaned, ",")),
	}
}

// resolveTargets partitions the requested columns into targets and ignored
// columns. The returned ResolvedTargets is populated even when an error is
// returned so that callers can report what was ignored.
func resolveTargets(d dialect.Dialect, spec model.TargetSpec, columns model.ColumnSet) (model.ResolvedTargets, error) {
	key := func(name string) string {
		if d.CaseInsensitive() {
			return strings.ToLower(name)
		}
		return name
	}

	var resolved model.ResolvedTargets
	if spec.All {
		resolved.Targets = append([]string(nil), columns.Numeric...)
		resolved.IgnoredNonNumeric = append([]string(nil), columns.NonNumeric...)
	} else {
		numeric := lo.SliceToMap(columns.Numeric, func(name string) (string, string) { return key(name), name })
		nonNumeric := lo.SliceToMap(columns.NonNumeric, func(name string) (string, string) { return key(name), name })

		for _, entry := range spec.Columns {
			name, ok := targetName(d, entry)
			if !ok {
				resolved.IgnoredNonexistent = append(resolved.IgnoredNonexistent, entry)
				continue
			}
			if column, ok := numeric[key(name)]; ok {
				resolved.Targets = append(resolved.Targets, column)
			} else if column, ok := nonNumeric[key(name)]; ok {
				resolved.IgnoredNonNumeric = append(resolved.IgnoredNonNumeric, column)
			} else {
				resolved.IgnoredNonexistent = append(resolved.IgnoredNonexistent, entry)
			}
		}
		resolved.Targets = uniq(resolved.Targets)
		resolved.IgnoredNonNumeric = uniq(resolved.IgnoredNonNumeric)
		resolved.IgnoredNonexistent = uniq(resolved.IgnoredNonexistent)
	}

	switch n := len(resolved.Targets); {
	case n == 0:
		return resolved, fmt.Errorf("%w: none of the requested columns is numeric", ErrNoNumericTargets)
	case n == 1:
		return resolved, fmt.Errorf("%w: only %q qualifies", ErrInsufficientTargets, resolved.Targets[0])
	case d.MaxColumns() > 0 && n+2 > d.MaxColumns():
		return resolved, fmt.Errorf("%w: %d targets exceed the %s limit of %d columns", ErrTooManyTargets, n, d.Name(), d.MaxColumns())
	}
	for _, target := range resolved.Targets {
		if k := key(target); k == positionColumn || k == variableColumn {
			return resolved, fmt.Errorf("%w: target column %q clashes with an output column", ErrInvalidArgument, target)
		}
	}
	return resolved, nil
}

// targetName applies the dialect's folding to a single target entry. Entries
// that do not parse as a single identifier cannot name a column.
func targetName(d dialect.Dialect, entry string) (string, bool) {
	ids, err := model.ParseIdentifiers(entry)
	if err != nil || len(ids) != 1 {
		return "", false
	}
	return d.NormalizeIdentifier(ids[0]), true
}

// uniq drops repeated names keeping the first occurrence.
func uniq(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	return lo.Uniq(names)
}
