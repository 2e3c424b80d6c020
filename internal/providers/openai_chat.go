package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	HuggingFaceName    = "huggingface"
	HuggingFaceBaseURL = "https://router.huggingface.co/v1"
	OpenAIName         = "openai"

	huggingFaceDefaultModel = "meta-llama/Llama-3.1-8B-Instruct"
)

// OpenAIChatConfig holds configuration for an OpenAI-compatible chat client.
type OpenAIChatConfig struct {
	Name         string // Client identifier (default: "huggingface")
	APIKey       string
	BaseURL      string // Default: Hugging Face router
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int           // SDK transport retries for Chat (default: 0)
	ProbeRetries int           // Attempts for Probe (default: 3)
	RetryDelay   time.Duration // Base delay between probe attempts (default: 500ms)
	HTTPClient   *http.Client  // Optional (tests)
}

// OpenAIChatClient implements LLMClient against any OpenAI-compatible chat
// completions endpoint using the official SDK.
type OpenAIChatClient struct {
	name         string
	defaultModel string
	probeRetries int
	retryDelay   time.Duration
	client       openai.Client
}

// NewOpenAIChatClient creates a new OpenAI-compatible chat client.
func NewOpenAIChatClient(cfg OpenAIChatConfig) *OpenAIChatClient {
	if cfg.Name == "" {
		cfg.Name = HuggingFaceName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = HuggingFaceBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = huggingFaceDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.ProbeRetries <= 0 {
		cfg.ProbeRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	)

	return &OpenAIChatClient{
		name:         cfg.Name,
		defaultModel: cfg.DefaultModel,
		probeRetries: cfg.ProbeRetries,
		retryDelay:   cfg.RetryDelay,
		client:       client,
	}
}

// Name returns the client identifier.
func (c *OpenAIChatClient) Name() string {
	return c.name
}

// Model returns the default model.
func (c *OpenAIChatClient) Model() string {
	return c.defaultModel
}

// Probe verifies the endpoint is reachable and the API key is accepted.
// Transient failures are retried; auth failures are not.
func (c *OpenAIChatClient) Probe(ctx context.Context) error {
	err := retry.Do(
		func() error {
			_, err := c.client.Models.List(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.probeRetries)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransientOpenAIError),
	)
	if err != nil {
		return fmt.Errorf("%s probe failed: %w", c.name, mapOpenAIError(c.name, err))
	}
	return nil
}

// Chat sends a chat completion request.
func (c *OpenAIChatClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  c.name,
		Attempts:  1,
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	if req.ResponseFormat != nil {
		rf, err := openAIResponseFormat(req.ResponseFormat)
		if err != nil {
			result.ErrorType = "schema_error"
			result.ErrorMessage = err.Error()
			return result, err
		}
		params.ResponseFormat = rf
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = mapOpenAIError(c.name, err)
		result.ErrorType = "http_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}
	if len(resp.Choices) == 0 {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	result.Success = true
	result.Content = content
	result.ModelUsed = resp.Model
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	result.ExecutionTime = time.Since(start)

	if req.ResponseFormat != nil && content != "" {
		if parsed, err := ParseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		} else {
			result.Success = false
			result.ErrorType = "json_parse"
			result.ErrorMessage = fmt.Sprintf("failed to parse JSON response: %v", err)
		}
	}

	return result, nil
}

// openAIResponseFormat converts a {"name","strict","schema"} envelope into
// the SDK's json_schema response format.
func openAIResponseFormat(rf *ResponseFormat) (openai.ChatCompletionNewParamsResponseFormatUnion, error) {
	var out openai.ChatCompletionNewParamsResponseFormatUnion
	if rf.Type != "json_schema" || len(rf.JSONSchema) == 0 {
		out.OfJSONObject = &openai.ResponseFormatJSONObjectParam{}
		return out, nil
	}

	var envelope struct {
		Name   string         `json:"name"`
		Strict bool           `json:"strict"`
		Schema map[string]any `json:"schema"`
	}
	if err := json.Unmarshal(rf.JSONSchema, &envelope); err != nil {
		return out, fmt.Errorf("invalid json_schema: %w", err)
	}
	if envelope.Name == "" {
		envelope.Name = "response"
	}

	out.OfJSONSchema = &openai.ResponseFormatJSONSchemaParam{
		JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   envelope.Name,
			Schema: envelope.Schema,
			Strict: openai.Bool(envelope.Strict),
		},
	}
	return out, nil
}

func mapOpenAIError(name string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%s rejected credentials (status %d)", name, apiErr.StatusCode)
		case apiErr.Message != "":
			return fmt.Errorf("%s error (status %d): %s", name, apiErr.StatusCode, apiErr.Message)
		default:
			return fmt.Errorf("%s error (status %d)", name, apiErr.StatusCode)
		}
	}
	return err
}

// isTransientOpenAIError reports whether a raw SDK error is worth retrying.
func isTransientOpenAIError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return shouldRetryStatus(apiErr.StatusCode)
	}
	// Network errors
	return true
}

var (
	_ LLMClient = (*OpenAIChatClient)(nil)
	_ Prober    = (*OpenAIChatClient)(nil)
)
