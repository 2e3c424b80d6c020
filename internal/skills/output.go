package skills

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wrapper keys a collaborator may use to nest a list of hits.
var wrapperKeys = []string{"skills", "extracted_skills"}

// Output is what an extraction collaborator returns: either a table or a
// list of structured/bare hits.
type Output struct {
	table *Table
	hits  []RawHit
}

// TableOutput wraps tabular collaborator output.
func TableOutput(t Table) Output {
	return Output{table: &t}
}

// HitsOutput wraps a list of structured or bare hits.
func HitsOutput(hits ...RawHit) Output {
	return Output{hits: hits}
}

// Table returns the tabular payload, if any.
func (o Output) Table() (Table, bool) {
	if o.table == nil {
		return Table{}, false
	}
	return *o.table, true
}

// Hits returns the structured payload.
func (o Output) Hits() []RawHit {
	return o.hits
}

// Normalize dispatches to the tabular or structured normalizer.
func (o Output) Normalize() Normalized {
	if t, ok := o.Table(); ok {
		return NormalizeTabular(t)
	}
	return NormalizeStructured(o.hits)
}

// DecodeOutput parses collaborator JSON. Numbers are kept as json.Number so
// confidence literals survive unchanged.
func DecodeOutput(data []byte) (Output, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Output{}, fmt.Errorf("decode extraction output: %w", err)
	}
	return OutputFromValue(v)
}

// OutputFromValue classifies a decoded JSON value:
//   - {"columns": [...], "data": [...]} is a table (pandas split orientation)
//   - {"skills": [...]} or {"extracted_skills": [...]} is a wrapped batch
//   - any other object carries no hits
//   - a list is a batch of hits, a string a single bare hit, null no hits
func OutputFromValue(v any) (Output, error) {
	switch t := v.(type) {
	case nil:
		return HitsOutput(), nil
	case string:
		return HitsOutput(Bare(t)), nil
	case []any:
		return HitsOutput(hitsFromList(t)...), nil
	case map[string]any:
		if isSplitTable(t) {
			table, err := tableFromSplit(t)
			if err != nil {
				return Output{}, err
			}
			return TableOutput(table), nil
		}
		for _, key := range wrapperKeys {
			inner, ok := t[key]
			if !ok || inner == nil {
				continue
			}
			list, ok := inner.([]any)
			if !ok {
				return Output{}, fmt.Errorf("%q is %T, want a list", key, inner)
			}
			return HitsOutput(hitsFromList(list)...), nil
		}
		// A bare mapping is not unwrapped into a hit: LAiSER only reports
		// skills under a wrapper key.
		return HitsOutput(), nil
	default:
		return Output{}, fmt.Errorf("unsupported extraction output %T", v)
	}
}

func hitsFromList(list []any) []RawHit {
	hits := make([]RawHit, 0, len(list))
	for _, item := range list {
		hits = append(hits, HitFromValue(item))
	}
	return hits
}

func isSplitTable(m map[string]any) bool {
	_, hasCols := m["columns"]
	_, hasData := m["data"]
	return hasCols && hasData
}

func tableFromSplit(m map[string]any) (Table, error) {
	rawCols, ok := m["columns"].([]any)
	if !ok {
		return Table{}, fmt.Errorf("table columns is %T, want a list", m["columns"])
	}
	cols := make([]string, len(rawCols))
	for i, c := range rawCols {
		name, ok := c.(string)
		if !ok {
			return Table{}, fmt.Errorf("table column %d is %T, want a string", i, c)
		}
		cols[i] = name
	}

	rawRows, ok := m["data"].([]any)
	if !ok {
		return Table{}, fmt.Errorf("table data is %T, want a list", m["data"])
	}
	rows := make([]RawHit, 0, len(rawRows))
	for _, r := range rawRows {
		switch row := r.(type) {
		case map[string]any:
			rows = append(rows, TabularRow(row))
		case []any:
			if len(row) != len(cols) {
				rows = append(rows, Invalid(row))
				continue
			}
			fields := make(map[string]any, len(cols))
			for i, c := range cols {
				fields[c] = row[i]
			}
			rows = append(rows, TabularRow(fields))
		default:
			rows = append(rows, Invalid(r))
		}
	}
	return Table{Columns: cols, Rows: rows}, nil
}
