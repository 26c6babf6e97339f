// internal/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"portlink-orchestrator/internal/common/logger"
)

var (
	ErrParseIntentFailed = errors.New("INTENT_PARSING_FAILED")
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
	ErrProviderTimeout   = errors.New("GENAI_TIMEOUT")
)

// Config holds the provider endpoint settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// IntentResult is the provider's intent analysis.
type IntentResult struct {
	Intent                string            `json:"intent"`
	Confidence            float64           `json:"confidence"`
	SecondaryIntent       string            `json:"secondaryIntent,omitempty"`
	RequiresClarification bool              `json:"requiresClarification"`
	ClarificationQuestion string            `json:"clarificationQuestion,omitempty"`
	Entities              map[string]string `json:"entities,omitempty"`
	Reasoning             string            `json:"reasoning,omitempty"`
}

// Client calls the GenAI provider for intent parsing and structured generation.
type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.With(map[string]interface{}{
			"component": "genai",
		}),
	}
}

// ParseIntent asks the provider to classify the message and extract entities.
func (c *Client) ParseIntent(ctx context.Context, message string, sessionContext map[string]interface{}) (*IntentResult, error) {
	requestBody := map[string]interface{}{
		"query": message,
	}
	if sessionContext != nil {
		requestBody["context"] = sessionContext
	}

	raw, err := c.post(ctx, "/api/ai/parse-intent", requestBody, ErrParseIntentFailed)
	if err != nil {
		return nil, err
	}

	var result IntentResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrParseIntentFailed, err)
	}

	c.logger.Info("intent parsed", map[string]interface{}{
		"intent":      result.Intent,
		"confidence":  result.Confidence,
		"entityCount": len(result.Entities),
	})

	return &result, nil
}

// Generate asks the provider for a structured completion. The schema describes
// the JSON shape the caller expects back.
func (c *Client) Generate(ctx context.Context, prompt string, schema map[string]interface{}) (map[string]interface{}, error) {
	requestBody := map[string]interface{}{
		"prompt": prompt,
	}
	if schema != nil {
		requestBody["responseSchema"] = schema
	}

	raw, err := c.post(ctx, "/api/ai/generate", requestBody, ErrGenerationFailed)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrGenerationFailed, err)
	}

	return result, nil
}

func (c *Client) post(ctx context.Context, path string, requestBody map[string]interface{}, failErr error) ([]byte, error) {
	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrProviderTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", failErr, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, ErrProviderTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			status := resp.StatusCode
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", status)
			resp = nil
			// Client errors will not improve on retry.
			if status >= 400 && status < 500 {
				return nil, fmt.Errorf("%w: %v", failErr, lastErr)
			}
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrProviderTimeout
		}
		return nil, fmt.Errorf("%w: %v", failErr, lastErr)
	}

	if resp == nil {
		return nil, fmt.Errorf("%w: no successful response after retries", failErr)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: read error: %v", failErr, err)
	}
	return buf.Bytes(), nil
}
