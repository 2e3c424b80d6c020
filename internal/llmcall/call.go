// Package llmcall provides LLM call recording for traceability.
// Every extraction call can be recorded with the prompt versions it used,
// the raw response and its metrics.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillsync/skillextract/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Document the call extracted from
	DocumentID string `json:"document_id,omitempty"`

	// Prompt traceability: prompt key -> SHA-256 of the resolved text
	Prompts map[string]string `json:"prompts,omitempty"`

	// Model info
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	RequestID   string   `json:"request_id,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Attempts    int      `json:"attempts"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Response
	Response string `json:"response"`

	// Status
	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	DocumentID string

	// Prompt identification (required for traceability)
	Prompts map[string]string

	// Request parameters (pointer to distinguish "not set" from "set to 0")
	Temperature *float64
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(result.ExecutionTime.Milliseconds()),
		DocumentID:   opts.DocumentID,
		Prompts:      opts.Prompts,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		RequestID:    result.RequestID,
		Attempts:     result.Attempts,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		Response:     result.Content,
		Success:      result.Success,
	}

	if opts.Temperature != nil {
		call.Temperature = opts.Temperature
	}

	if !result.Success {
		call.ErrorType = result.ErrorType
		call.Error = result.ErrorMessage
	}

	return call
}
