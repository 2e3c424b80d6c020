package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// statusError is a non-200 response from OpenRouter.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("OpenRouter error (status %d): %s", e.StatusCode, e.Body)
}

// doRequest posts body to OpenRouter. Transport failures and retryable
// status codes are retried up to maxRetries attempts in total; it returns
// the number of attempts made.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, body *openRouterRequest) (*openRouterResponse, int, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	jitter := c.retryDelay / 2
	if jitter <= 0 {
		jitter = time.Millisecond
	}

	attempts := 0
	resp, err := retry.DoWithData(
		func() (*openRouterResponse, error) {
			attempts++
			return c.post(ctx, path, bodyBytes)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(jitter),
		retry.LastErrorOnly(true),
		retry.RetryIf(c.isRetryable),
	)
	if err != nil {
		if c.maxRetries > 1 && attempts >= c.maxRetries {
			return nil, attempts, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, err)
		}
		return nil, attempts, err
	}
	return resp, attempts, nil
}

func (c *OpenRouterClient) post(ctx context.Context, path string, body []byte) (*openRouterResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "skillextract")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to unmarshal response: %w", err))
	}
	return &orResp, nil
}

// isRetryable reports whether a failed attempt is worth repeating.
func (c *OpenRouterClient) isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return shouldRetryStatus(se.StatusCode)
	}
	// Network errors
	return true
}

// shouldRetryStatus returns true for status codes that should be retried.
func shouldRetryStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests:
		return true
	case 520, 521, 522, 523, 524: // Cloudflare errors
		return true
	default:
		// Retry on server errors (500+)
		return statusCode >= 500
	}
}
