package skills

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExtractor struct {
	calls int
	docs  []Document
	out   Output
	err   error
	panic any
}

func (c *countingExtractor) Extract(_ context.Context, doc Document) (Output, error) {
	c.calls++
	c.docs = append(c.docs, doc)
	if c.panic != nil {
		panic(c.panic)
	}
	return c.out, c.err
}

func TestExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input never reaches the collaborator", func(t *testing.T) {
		ex := &countingExtractor{}

		res := Extract(ctx, " \n\t ", ex)

		assert.Equal(t, 0, ex.calls)
		require.Error(t, res.Err)
		assert.True(t, errors.Is(res.Err, ErrEmptyInput))
		assert.True(t, IsFatal(res.Err))
		assert.Equal(t, "Empty input text", res.Err.Error())
		assert.Empty(t, res.Skills)
	})

	t.Run("collaborator failure is soft", func(t *testing.T) {
		ex := &countingExtractor{err: errors.New("CUDA out of memory")}

		res := Extract(ctx, "Senior accountant", ex)

		assert.Equal(t, 1, ex.calls)
		require.Error(t, res.Err)
		assert.True(t, errors.Is(res.Err, ErrExtractionFailed))
		assert.False(t, IsFatal(res.Err))
		assert.Equal(t, "Extraction failed: CUDA out of memory", res.Err.Error())
		assert.NotNil(t, res.Skills)
		assert.Empty(t, res.Skills)
	})

	t.Run("initialization failure keeps its class", func(t *testing.T) {
		ex := &countingExtractor{err: InitializationError(errors.New("no weights"))}

		res := Extract(ctx, "text", ex)

		assert.True(t, errors.Is(res.Err, ErrInitialization))
		assert.Equal(t, "Failed to initialize extractor", res.Err.Error())
	})

	t.Run("missing dependency is fatal", func(t *testing.T) {
		ex := &countingExtractor{err: MissingDependencyError("python3 not found", nil)}

		res := Extract(ctx, "text", ex)

		assert.True(t, errors.Is(res.Err, ErrMissingDependency))
		assert.True(t, IsFatal(res.Err))
	})

	t.Run("panic is recovered", func(t *testing.T) {
		ex := &countingExtractor{panic: "boom"}

		res := Extract(ctx, "text", ex)

		assert.True(t, errors.Is(res.Err, ErrExtractionFailed))
		assert.Equal(t, "Extraction failed: panic: boom", res.Err.Error())
	})

	t.Run("tabular success with metrics", func(t *testing.T) {
		ex := &countingExtractor{out: TableOutput(Table{
			Columns: []string{"id", "skill_0", "skill_1"},
			Rows: []RawHit{TabularRow(map[string]any{
				"id": "doc_1", "skill_0": "Python programming", "skill_1": "",
			})},
		})}

		res := Extract(ctx, "héllo wörld", ex)

		require.NoError(t, res.Err)
		assert.Equal(t, 1, ex.calls)
		assert.Equal(t, DefaultDocumentID, ex.docs[0].ID)
		assert.Equal(t, 11, res.Metrics.TextProcessed)
		assert.Equal(t, 1, res.Metrics.SkillsFound)
		assert.Len(t, res.Skills, 1)
	})

	t.Run("surrounding whitespace is stripped before counting", func(t *testing.T) {
		ex := &countingExtractor{out: HitsOutput(Bare("excel"))}

		res := Extract(ctx, "  Spreadsheet analyst\n", ex)

		require.NoError(t, res.Err)
		require.Len(t, ex.docs, 1)
		assert.Equal(t, "Spreadsheet analyst", ex.docs[0].Text)
		assert.Equal(t, 19, res.Metrics.TextProcessed)
	})

	t.Run("partial normalization is visible but not an error", func(t *testing.T) {
		ex := &countingExtractor{out: HitsOutput(
			Bare("excel"),
			Structured(map[string]any{"skill": "x", "level": "high"}),
		)}

		res := Extract(ctx, "text", ex)

		require.NoError(t, res.Err)
		assert.Len(t, res.Skills, 1)
		assert.True(t, res.Partial())
	})

	t.Run("confidence unit option", func(t *testing.T) {
		out := HitsOutput(Bare("excel"), Structured(map[string]any{"skill": "sql", "confidence": json.Number("80")}))

		res := Extract(ctx, "text", &countingExtractor{out: out}, WithConfidenceUnit(UnitFraction))
		require.NoError(t, res.Err)
		assert.Equal(t, Confidence("0.5"), res.Skills[0].Confidence)
		assert.Equal(t, Confidence("0.8"), res.Skills[1].Confidence)

		res = Extract(ctx, "text", &countingExtractor{out: out}, WithConfidenceUnit(UnitPercent))
		assert.Equal(t, Confidence("50"), res.Skills[0].Confidence)
		assert.Equal(t, Confidence("80"), res.Skills[1].Confidence)
	})

	t.Run("document id option", func(t *testing.T) {
		ex := &countingExtractor{}
		Extract(ctx, "text", ex, WithDocumentID("job-42"))
		assert.Equal(t, "job-42", ex.docs[0].ID)
	})
}

func TestResult_Response(t *testing.T) {
	t.Run("success shape", func(t *testing.T) {
		res := Result{
			Skills: []Record{{
				Skill: "Python programming", Level: 5,
				KnowledgeRequired: []string{}, Tasks: []string{}, Confidence: "75",
			}},
			Metrics: Metrics{TextProcessed: 120, SkillsFound: 1},
		}

		data, err := json.Marshal(res.Response())
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"skills": [{"skill": "Python programming", "level": 5, "knowledge_required": [], "tasks": [], "confidence": 75}],
			"text_processed": 120,
			"skills_found": 1
		}`, string(data))
		assert.Equal(t,
			`{"skills":[{"skill":"Python programming","level":5,"knowledge_required":[],"tasks":[],"confidence":75}],"text_processed":120,"skills_found":1}`,
			string(data))
	})

	t.Run("failure shape", func(t *testing.T) {
		res := Extract(context.Background(), "text", &countingExtractor{err: errors.New("model crashed")})

		data, err := json.Marshal(res.Response())
		require.NoError(t, err)
		assert.JSONEq(t, `{"skills": [], "error": "Extraction failed: model crashed"}`, string(data))
	})

	t.Run("empty success still reports counts", func(t *testing.T) {
		data, err := json.Marshal(Result{Metrics: Metrics{TextProcessed: 4}}.Response())
		require.NoError(t, err)
		assert.JSONEq(t, `{"skills": [], "text_processed": 4, "skills_found": 0}`, string(data))
	})
}

type modelExtractor struct{ countingExtractor }

func (m *modelExtractor) Model() string { return "microsoft/DialoGPT-medium" }

func TestExtract_ReportsModelAndDuration(t *testing.T) {
	ex := &modelExtractor{}
	ex.out = HitsOutput(Bare("excel"))

	res := Extract(context.Background(), "text", ex)
	require.NoError(t, res.Err)
	assert.Equal(t, "microsoft/DialoGPT-medium", res.Model)
	assert.GreaterOrEqual(t, int64(res.Duration), int64(0))

	ex.err = errors.New("boom")
	res = Extract(context.Background(), "text", ex)
	require.Error(t, res.Err)
	assert.Equal(t, "microsoft/DialoGPT-medium", res.Model)
}
