package skills

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Level bounds for canonical records.
const (
	MinLevel = 1
	MaxLevel = 12
)

// Record is the canonical skill record. Records are built once by the
// normalizers and never mutated afterwards.
type Record struct {
	Skill             string     `json:"skill" yaml:"skill"`
	Level             int        `json:"level" yaml:"level"`
	KnowledgeRequired []string   `json:"knowledge_required" yaml:"knowledge_required"`
	Tasks             []string   `json:"tasks" yaml:"tasks"`
	Confidence        Confidence `json:"confidence" yaml:"confidence"`
}

func newRecord(skill string, level int, knowledge, tasks []string, confidence Confidence) Record {
	if knowledge == nil {
		knowledge = []string{}
	}
	if tasks == nil {
		tasks = []string{}
	}
	return Record{
		Skill:             skill,
		Level:             clampLevel(level),
		KnowledgeRequired: knowledge,
		Tasks:             tasks,
		Confidence:        confidence,
	}
}

// Hit returns the record as a structured raw hit keyed by the primary
// spellings. Normalizing it again yields an identical record.
func (r Record) Hit() RawHit {
	return Structured(map[string]any{
		"skill":              r.Skill,
		"level":              r.Level,
		"knowledge_required": append([]string{}, r.KnowledgeRequired...),
		"tasks":              append([]string{}, r.Tasks...),
		"confidence":         r.Confidence,
	})
}

func clampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// Confidence is a numeric confidence kept as its decimal literal so that the
// value reaches the output exactly as the source spelled it (75, 0.5, 1.0).
type Confidence string

// ConfidenceOf formats f as a Confidence.
func ConfidenceOf(f float64) Confidence {
	return Confidence(strconv.FormatFloat(f, 'f', -1, 64))
}

func parseConfidence(lit string) (Confidence, error) {
	lit = strings.TrimSpace(lit)
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return "", fmt.Errorf("confidence %q is not numeric", lit)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("confidence %q is not finite", lit)
	}
	// Only literals that are already valid JSON numbers are kept verbatim.
	if json.Valid([]byte(lit)) {
		return Confidence(lit), nil
	}
	return ConfidenceOf(f), nil
}

// Float64 returns the numeric value. An empty Confidence is zero.
func (c Confidence) Float64() float64 {
	f, _ := strconv.ParseFloat(string(c), 64)
	return f
}

func (c Confidence) String() string {
	return string(c)
}

// MarshalJSON writes the literal as a JSON number.
func (c Confidence) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("0"), nil
	}
	return []byte(c), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := coerceConfidence(raw)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalYAML emits the value as a YAML float rather than a string.
func (c Confidence) MarshalYAML() (any, error) {
	return c.Float64(), nil
}

// ConfidenceUnit selects how confidence values are reported.
type ConfidenceUnit string

const (
	// UnitSource passes values through as produced by each normalization path.
	UnitSource ConfidenceUnit = "source"
	// UnitFraction reports every value in [0, 1].
	UnitFraction ConfidenceUnit = "fraction"
	// UnitPercent reports every value in [0, 100].
	UnitPercent ConfidenceUnit = "percent"
)

// ParseConfidenceUnit validates a configured unit name.
func ParseConfidenceUnit(s string) (ConfidenceUnit, error) {
	switch u := ConfidenceUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case "", UnitSource:
		return UnitSource, nil
	case UnitFraction, UnitPercent:
		return u, nil
	default:
		return "", fmt.Errorf("unknown confidence unit %q (want source, fraction or percent)", s)
	}
}

// In converts c to the given unit. Values above 1 are read as percentages,
// values at or below 1 as fractions.
func (c Confidence) In(unit ConfidenceUnit) Confidence {
	f := c.Float64()
	switch unit {
	case UnitFraction:
		if f > 1 {
			return ConfidenceOf(f / 100)
		}
	case UnitPercent:
		if f <= 1 {
			return ConfidenceOf(f * 100)
		}
	}
	return c
}
