package skills

import (
	"fmt"
	"strings"
)

// Defaults for structured and bare hits.
const (
	StructuredLevel                 = 1
	StructuredConfidence Confidence = "1.0"
	BareLevel                       = 1
	BareConfidence       Confidence = "0.5"
)

type field int

const (
	fieldSkill field = iota
	fieldLevel
	fieldKnowledge
	fieldTasks
	fieldConfidence
	numFields
)

// fieldSpec is one row of the key precedence table.
type fieldSpec struct {
	primary  string
	fallback string
	def      any
}

// precedence lists, per canonical field, the key tried first, the key tried
// second, and the value used when neither is present. A key holding null
// counts as absent.
var precedence = [numFields]fieldSpec{
	fieldSkill:      {primary: "skill", fallback: "name", def: ""},
	fieldLevel:      {primary: "level", fallback: "proficiency_level", def: StructuredLevel},
	fieldKnowledge:  {primary: "knowledge_required", fallback: "knowledge", def: nil},
	fieldTasks:      {primary: "tasks", fallback: "task_abilities", def: nil},
	fieldConfidence: {primary: "confidence", fallback: "score", def: StructuredConfidence},
}

func (s fieldSpec) resolve(m map[string]any) any {
	if v, ok := m[s.primary]; ok && v != nil {
		return v
	}
	if v, ok := m[s.fallback]; ok && v != nil {
		return v
	}
	return s.def
}

// NormalizeStructured converts mapping and bare-string hits to records in
// input order. A hit that fails coercion is skipped with a warning; hits
// whose name is blank are dropped silently.
func NormalizeStructured(hits []RawHit) Normalized {
	out := Normalized{Records: []Record{}}
	for i, hit := range hits {
		rec, ok, err := NormalizeHit(hit)
		if err != nil {
			out.Warnings = append(out.Warnings, Warning{Index: i, Kind: hit.Kind(), Reason: err.Error()})
			continue
		}
		if ok {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

// NormalizeHit converts a single structured or bare hit. It returns
// ok=false with a nil error when the hit names no skill.
func NormalizeHit(hit RawHit) (Record, bool, error) {
	switch hit.Kind() {
	case KindBare:
		name := strings.TrimSpace(hit.Name())
		if name == "" {
			return Record{}, false, nil
		}
		return newRecord(name, BareLevel, nil, nil, BareConfidence), true, nil
	case KindStructured:
		return normalizeMapping(hit.Fields())
	case KindTabular:
		return Record{}, false, fmt.Errorf("tabular row in structured batch")
	default:
		return Record{}, false, fmt.Errorf("unsupported hit %s", hit)
	}
}

func normalizeMapping(m map[string]any) (Record, bool, error) {
	var name string
	switch v := precedence[fieldSkill].resolve(m).(type) {
	case string:
		name = strings.TrimSpace(v)
	default:
		return Record{}, false, fmt.Errorf("skill name has unsupported type %T", v)
	}
	if name == "" {
		return Record{}, false, nil
	}

	level, err := coerceLevel(precedence[fieldLevel].resolve(m))
	if err != nil {
		return Record{}, false, fmt.Errorf("skill %q: %w", name, err)
	}
	knowledge, err := coerceList("knowledge_required", precedence[fieldKnowledge].resolve(m))
	if err != nil {
		return Record{}, false, fmt.Errorf("skill %q: %w", name, err)
	}
	tasks, err := coerceList("tasks", precedence[fieldTasks].resolve(m))
	if err != nil {
		return Record{}, false, fmt.Errorf("skill %q: %w", name, err)
	}
	confidence, err := coerceConfidence(precedence[fieldConfidence].resolve(m))
	if err != nil {
		return Record{}, false, fmt.Errorf("skill %q: %w", name, err)
	}

	return newRecord(name, level, knowledge, tasks, confidence), true, nil
}
