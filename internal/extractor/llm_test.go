package extractor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/skillsync/skillextract/internal/llmcall"
	"github.com/skillsync/skillextract/internal/prompts/extract_skills"
	"github.com/skillsync/skillextract/internal/providers"
	"github.com/skillsync/skillextract/internal/skills"
)

func TestLLM_Extract(t *testing.T) {
	ctx := context.Background()
	doc := skills.Document{ID: "doc_1", Text: "Staff accountant, SQL reporting"}

	t.Run("schema-conforming reply", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseJSON = json.RawMessage(`{"skills":[
			{"skill":"SQL","level":4,"knowledge_required":["joins"],"tasks":["monthly reports"],"confidence":0.9},
			{"skill":"Financial reporting","level":6,"knowledge_required":[],"tasks":[],"confidence":1.0}
		]}`)

		ex := NewLLM(LLMConfig{Client: mock, Model: "meta-llama/Llama-3.1-8B-Instruct", Strict: true, Levels: true})
		res := skills.Extract(ctx, doc.Text, ex)
		if res.Err != nil {
			t.Fatalf("Extract() error = %v", res.Err)
		}
		if len(res.Skills) != 2 {
			t.Fatalf("expected 2 skills, got %d", len(res.Skills))
		}
		if res.Skills[1].Confidence != "1.0" {
			t.Errorf("confidence literal changed: %s", res.Skills[1].Confidence)
		}
		if res.Model != "meta-llama/Llama-3.1-8B-Instruct" {
			t.Errorf("Model = %s", res.Model)
		}

		req := mock.LastRequest()
		if req == nil || req.Model != "meta-llama/Llama-3.1-8B-Instruct" {
			t.Fatalf("model not forwarded: %+v", req)
		}
		if !strings.Contains(req.Messages[1].Content, doc.Text) {
			t.Error("document text not in user prompt")
		}
	})

	t.Run("strict rejects schema mismatch", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseJSON = json.RawMessage(`{"skills":[{"name":"SQL","proficiency_level":"4"}]}`)

		res := skills.Extract(ctx, doc.Text, NewLLM(LLMConfig{Client: mock, Strict: true}))
		if !errors.Is(res.Err, skills.ErrExtractionFailed) {
			t.Fatalf("expected ErrExtractionFailed, got %v", res.Err)
		}
	})

	t.Run("lenient normalizes alternate spellings", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseJSON = json.RawMessage(`{"skills":[{"name":"SQL","proficiency_level":"4"}]}`)

		res := skills.Extract(ctx, doc.Text, NewLLM(LLMConfig{Client: mock}))
		if res.Err != nil {
			t.Fatalf("Extract() error = %v", res.Err)
		}
		if len(res.Skills) != 1 || res.Skills[0].Skill != "SQL" || res.Skills[0].Level != 4 {
			t.Errorf("unexpected skills %+v", res.Skills)
		}
	})

	t.Run("client failure", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ShouldFail = true

		res := skills.Extract(ctx, doc.Text, NewLLM(LLMConfig{Client: mock}))
		if !errors.Is(res.Err, skills.ErrExtractionFailed) {
			t.Fatalf("expected ErrExtractionFailed, got %v", res.Err)
		}
		if mock.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want exactly 1", mock.RequestCount())
		}
	})

	t.Run("no structured payload", func(t *testing.T) {
		mock := providers.NewMockClient()

		_, err := NewLLM(LLMConfig{Client: mock}).Extract(ctx, doc)
		if err == nil {
			t.Fatal("expected error for reply without JSON")
		}
	})

	t.Run("model falls back to client name", func(t *testing.T) {
		if got := NewLLM(LLMConfig{Client: providers.NewMockClient()}).Model(); got != providers.MockClientName {
			t.Errorf("Model() = %s", got)
		}
	})

	t.Run("records every call", func(t *testing.T) {
		var trace bytes.Buffer
		mock := providers.NewMockClient()
		mock.ResponseJSON = json.RawMessage(`{"skills":[{"skill":"SQL","level":4,"knowledge_required":[],"tasks":[],"confidence":0.9}]}`)
		ex := NewLLM(LLMConfig{Client: mock, Strict: true, Recorder: llmcall.NewRecorder(&trace, nil)})

		if res := skills.Extract(ctx, doc.Text, ex, skills.WithDocumentID("doc_9")); res.Err != nil {
			t.Fatalf("Extract() error = %v", res.Err)
		}
		mock.ShouldFail = true
		_ = skills.Extract(ctx, doc.Text, ex)

		var calls []llmcall.Call
		scanner := bufio.NewScanner(&trace)
		for scanner.Scan() {
			var c llmcall.Call
			if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
				t.Fatalf("invalid trace line: %v", err)
			}
			calls = append(calls, c)
		}
		if len(calls) != 2 {
			t.Fatalf("expected 2 trace records, got %d", len(calls))
		}
		if calls[0].DocumentID != "doc_9" || !calls[0].Success {
			t.Errorf("unexpected first record %+v", calls[0])
		}
		if calls[0].Prompts[extract_skills.SystemPromptKey] == "" || calls[0].Prompts[extract_skills.UserPromptKey] == "" {
			t.Errorf("missing prompt hashes: %v", calls[0].Prompts)
		}
		if calls[0].Temperature == nil || *calls[0].Temperature != 0.1 {
			t.Errorf("unexpected temperature %v", calls[0].Temperature)
		}
		if calls[1].Success || calls[1].ErrorType != "mock_failure" {
			t.Errorf("unexpected second record %+v", calls[1])
		}
	})
}
