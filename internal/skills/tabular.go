package skills

import (
	"sort"
	"strconv"
	"strings"
)

// SkillColumnPrefix marks the columns of a tabular row that carry skill names.
const SkillColumnPrefix = "skill_"

// Tabular rows carry no level or confidence data, so every record built
// from one gets these.
const (
	TabularLevel                 = 5
	TabularConfidence Confidence = "75"
)

// Table is the tabular collaborator output: declared columns plus rows.
type Table struct {
	Columns []string
	Rows    []RawHit
}

// NormalizeTabular emits one record per non-blank string in a skill_*
// column, in row order then column order. Rows that are not mappings are
// skipped with a warning.
func NormalizeTabular(t Table) Normalized {
	out := Normalized{Records: []Record{}}
	for i, row := range t.Rows {
		if row.Kind() != KindTabular || row.Fields() == nil {
			out.Warnings = append(out.Warnings, Warning{
				Index:  i,
				Kind:   row.Kind(),
				Reason: "row is not a mapping",
			})
			continue
		}
		fields := row.Fields()
		for _, col := range skillColumns(t.Columns, fields) {
			name, ok := fields[col].(string)
			if !ok {
				continue
			}
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			out.Records = append(out.Records, newRecord(name, TabularLevel, nil, nil, TabularConfidence))
		}
	}
	return out
}

// skillColumns returns the skill columns present in one row: the declared
// columns first, then any extra skill_* keys ordered by numeric suffix.
func skillColumns(declared []string, row map[string]any) []string {
	cols := make([]string, 0, len(row))
	seen := make(map[string]bool, len(declared))
	for _, c := range declared {
		if seen[c] || !strings.HasPrefix(c, SkillColumnPrefix) {
			continue
		}
		seen[c] = true
		if _, ok := row[c]; ok {
			cols = append(cols, c)
		}
	}

	var extra []string
	for c := range row {
		if !seen[c] && strings.HasPrefix(c, SkillColumnPrefix) {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool {
		return columnLess(extra[i], extra[j])
	})
	return append(cols, extra...)
}

// columnLess orders skill_2 before skill_10; non-numeric suffixes sort
// after numeric ones, lexically.
func columnLess(a, b string) bool {
	na, errA := strconv.Atoi(strings.TrimPrefix(a, SkillColumnPrefix))
	nb, errB := strconv.Atoi(strings.TrimPrefix(b, SkillColumnPrefix))
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
