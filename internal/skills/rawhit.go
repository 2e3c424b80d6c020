package skills

import "fmt"

// Kind identifies the shape of a raw hit.
type Kind int

const (
	// KindInvalid is a hit of no known shape (number, bool, null, list).
	KindInvalid Kind = iota
	// KindTabular is a table row whose skill_* columns hold skill names.
	KindTabular
	// KindStructured is a mapping with optional name/level/confidence keys.
	KindStructured
	// KindBare is a plain string naming one skill.
	KindBare
)

func (k Kind) String() string {
	switch k {
	case KindTabular:
		return "tabular"
	case KindStructured:
		return "structured"
	case KindBare:
		return "bare"
	default:
		return "invalid"
	}
}

// RawHit is one untrusted extraction result. Exactly one of the payload
// fields is meaningful, selected by Kind.
type RawHit struct {
	kind   Kind
	fields map[string]any
	name   string
	value  any
}

// TabularRow wraps a table row.
func TabularRow(row map[string]any) RawHit {
	return RawHit{kind: KindTabular, fields: row}
}

// Structured wraps a mapping hit.
func Structured(fields map[string]any) RawHit {
	return RawHit{kind: KindStructured, fields: fields}
}

// Bare wraps a plain string hit.
func Bare(name string) RawHit {
	return RawHit{kind: KindBare, name: name}
}

// Invalid wraps a value that matches no known shape.
func Invalid(value any) RawHit {
	return RawHit{kind: KindInvalid, value: value}
}

// HitFromValue classifies a decoded JSON value as a structured or bare hit.
func HitFromValue(v any) RawHit {
	switch t := v.(type) {
	case string:
		return Bare(t)
	case map[string]any:
		return Structured(t)
	default:
		return Invalid(v)
	}
}

// Kind returns the shape of the hit.
func (h RawHit) Kind() Kind {
	return h.kind
}

// Fields returns the mapping payload of tabular and structured hits.
func (h RawHit) Fields() map[string]any {
	return h.fields
}

// Name returns the payload of a bare hit.
func (h RawHit) Name() string {
	return h.name
}

func (h RawHit) String() string {
	switch h.kind {
	case KindBare:
		return fmt.Sprintf("bare(%q)", h.name)
	case KindTabular, KindStructured:
		return fmt.Sprintf("%s(%d keys)", h.kind, len(h.fields))
	default:
		return fmt.Sprintf("invalid(%T)", h.value)
	}
}

// Warning records a hit or row that was skipped during normalization.
type Warning struct {
	Index  int
	Kind   Kind
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s hit %d skipped: %s", w.Kind, w.Index, w.Reason)
}

// Normalized is the outcome of normalizing one batch. Warnings is non-empty
// when some hits were skipped; Records holds everything that survived.
type Normalized struct {
	Records  []Record
	Warnings []Warning
}

// Partial reports whether any hit failed to normalize.
func (n Normalized) Partial() bool {
	return len(n.Warnings) > 0
}
