// internal/agents/provider.go
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
)

// Provider executes tool calls for one capability agent.
type Provider interface {
	Name() string
	Call(ctx context.Context, toolName string, args map[string]interface{}) (map[string]interface{}, error)
}

// TokenSource supplies the bearer token used for provider calls. It is looked
// up per call so session token rotation takes effect immediately.
type TokenSource func(ctx context.Context) (string, error)

// HTTPProviderConfig holds the settings for one capability agent endpoint.
type HTTPProviderConfig struct {
	Name    string
	BaseURL string
	Timeout time.Duration
}

// HTTPProvider calls a capability agent over HTTP. Tool calls are POSTed to
// {base}/api/tools/{toolName} with the args as the JSON body.
type HTTPProvider struct {
	config HTTPProviderConfig
	client *http.Client
	tokens TokenSource
	logger logger.Logger
}

func NewHTTPProvider(config HTTPProviderConfig, tokens TokenSource, log logger.Logger) *HTTPProvider {
	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		tokens: tokens,
		logger: log.With(map[string]interface{}{
			"agent": config.Name,
		}),
	}
}

func (p *HTTPProvider) Name() string {
	return p.config.Name
}

func (p *HTTPProvider) Call(ctx context.Context, toolName string, args map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, stderrors.NewToolCallFailedError(toolName, err, false)
	}

	url := fmt.Sprintf("%s/api/tools/%s", p.config.BaseURL, toolName)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, stderrors.NewToolCallFailedError(toolName, err, false)
	}
	req.Header.Set("Content-Type", "application/json")

	if p.tokens != nil {
		token, err := p.tokens(ctx)
		if err != nil {
			return nil, stderrors.NewToolCallFailedError(toolName, fmt.Errorf("token lookup: %w", err), false)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// Network and deadline failures are worth retrying.
		return nil, stderrors.NewToolCallFailedError(toolName, err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("status %d", resp.StatusCode)
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, stderrors.NewToolCallFailedError(toolName, statusErr, retryable)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, stderrors.NewToolCallFailedError(toolName, fmt.Errorf("decode: %w", err), false)
	}

	p.logger.Debug("tool call completed", map[string]interface{}{
		"tool": toolName,
	})
	return result, nil
}
