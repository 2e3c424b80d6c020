package skills

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultDocumentID identifies the single document of a one-shot run.
const DefaultDocumentID = "doc_1"

// Document is one unit of text handed to the collaborator.
type Document struct {
	ID   string
	Text string
}

// Extractor is the model-backed collaborator. Implementations return their
// raw output untouched; all reshaping happens here.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (Output, error)
}

// ModelReporter is implemented by extractors that know which model serves
// them.
type ModelReporter interface {
	Model() string
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, doc Document) (Output, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, doc Document) (Output, error) {
	return f(ctx, doc)
}

// Metrics describes a successful extraction.
type Metrics struct {
	TextProcessed int
	SkillsFound   int
}

// Result is the outcome of Extract. Err is nil on success; on failure
// Skills is empty and Err is an *Error.
type Result struct {
	Skills   []Record
	Metrics  Metrics
	Warnings []Warning
	Err      error

	// Duration and Model describe the call for batch reports. They are not
	// part of Response.
	Duration time.Duration
	Model    string
}

// Partial reports whether some hits were dropped because they failed to
// normalize.
func (r Result) Partial() bool {
	return len(r.Warnings) > 0
}

type options struct {
	docID  string
	unit   ConfidenceUnit
	logger *slog.Logger
}

// Option configures Extract.
type Option func(*options)

// WithDocumentID overrides the id passed to the collaborator.
func WithDocumentID(id string) Option {
	return func(o *options) { o.docID = id }
}

// WithConfidenceUnit converts every confidence to one unit.
func WithConfidenceUnit(u ConfidenceUnit) Option {
	return func(o *options) { o.unit = u }
}

// WithLogger sets where per-hit diagnostics go.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Extract validates text, calls ex exactly once and normalizes its output.
// Surrounding whitespace is stripped before the collaborator sees the text
// and before it is counted. It never panics and never returns a bare
// collaborator error.
func Extract(ctx context.Context, text string, ex Extractor, opts ...Option) (res Result) {
	o := options{docID: DefaultDocumentID, unit: UnitSource}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return failed(EmptyInputError())
	}

	start := time.Now()
	model := ""
	if mr, ok := ex.(ModelReporter); ok {
		model = mr.Model()
	}
	defer func() {
		if r := recover(); r != nil {
			res = failed(ExtractionFailedError(fmt.Errorf("panic: %v", r)))
		}
		res.Duration = time.Since(start)
		res.Model = model
	}()

	out, err := ex.Extract(ctx, Document{ID: o.docID, Text: text})
	if err != nil {
		return failed(classify(err))
	}

	n := out.Normalize()
	for _, w := range n.Warnings {
		o.logger.Debug("skipped raw hit", "doc_id", o.docID, "index", w.Index, "kind", w.Kind.String(), "reason", w.Reason)
	}

	records := n.Records
	if o.unit != UnitSource {
		records = make([]Record, len(n.Records))
		for i, r := range n.Records {
			r.Confidence = r.Confidence.In(o.unit)
			records[i] = r
		}
	}

	return Result{
		Skills: records,
		Metrics: Metrics{
			TextProcessed: utf8.RuneCountInString(text),
			SkillsFound:   len(records),
		},
		Warnings: n.Warnings,
	}
}

func failed(err error) Result {
	return Result{Skills: []Record{}, Err: err}
}

// classify keeps initialization and dependency failures as they are and
// folds everything else into ErrExtractionFailed.
func classify(err error) error {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case ErrInitialization, ErrMissingDependency, ErrExtractionFailed:
			return e
		}
	}
	return ExtractionFailedError(err)
}

// Response is the JSON document written for one extraction.
type Response struct {
	Skills        []Record `json:"skills" yaml:"skills"`
	TextProcessed *int     `json:"text_processed,omitempty" yaml:"text_processed,omitempty"`
	SkillsFound   *int     `json:"skills_found,omitempty" yaml:"skills_found,omitempty"`
	Error         string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Response renders r in the output contract shape.
func (r Result) Response() Response {
	if r.Err != nil {
		return ErrorResponse(r.Err)
	}
	skills := r.Skills
	if skills == nil {
		skills = []Record{}
	}
	processed, found := r.Metrics.TextProcessed, len(skills)
	return Response{Skills: skills, TextProcessed: &processed, SkillsFound: &found}
}

// ErrorResponse renders a failure with an empty skill list.
func ErrorResponse(err error) Response {
	return Response{Skills: []Record{}, Error: err.Error()}
}
