package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// OpenRouter is the OpenRouter chat-completions client. It keeps a
// pooled HTTP transport and retries transient failures with exponential
// backoff. Auth and rate-limit responses are surfaced immediately.
type OpenRouter struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// NewOpenRouter builds a client from config. Defaults are applied before
// validation, so only api_key and model are mandatory.
func NewOpenRouter(cfg Config, logger *slog.Logger) (*OpenRouter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &OpenRouter{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger.With("component", "generation.openrouter", "provider", cfg.Name),
	}, nil
}

// Name returns the configured provider name.
func (p *OpenRouter) Name() string { return p.config.Name }

// chatRequest is the OpenRouter chat-completions request body.
type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []Message      `json:"messages"`
	MaxTokens int            `json:"max_tokens,omitempty"`
	Reasoning *reasoningOpts `json:"reasoning,omitempty"`
}

type reasoningOpts struct {
	Enabled bool `json:"enabled"`
}

// chatResponse is the subset of the response body this client reads.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			Reasoning string `json:"reasoning,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// Complete sends the transcript to /chat/completions and returns the
// first choice.
func (p *OpenRouter) Complete(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Messages) == 0 {
		return nil, &ProviderError{Provider: p.config.Name, Message: "empty transcript"}
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	body := chatRequest{
		Model:     model,
		Messages:  req.Messages,
		MaxTokens: maxTokens,
	}
	if req.Reasoning {
		body.Reasoning = &reasoningOpts{Enabled: true}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling completion request: %w", err)
	}

	respBytes, err := p.doWithRetry(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", payload)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, &ParseError{
			Provider:    p.config.Name,
			RawResponse: string(respBytes),
			Cause:       err,
		}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, &EmptyCompletionError{Provider: p.config.Name, Model: model}
	}

	result := &Result{
		Content:   parsed.Choices[0].Message.Content,
		Model:     model,
		Reasoning: parsed.Choices[0].Message.Reasoning,
	}
	if parsed.Usage != nil {
		result.Usage = *parsed.Usage
	}

	p.logger.Debug("completion received",
		"model", model,
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens,
	)

	return result, nil
}

// HealthCheck issues a minimal models listing to confirm reachability
// and credentials.
func (p *OpenRouter) HealthCheck(ctx context.Context) error {
	_, err := p.doWithRetry(ctx, http.MethodGet, p.config.BaseURL+"/models", nil)
	return err
}

// Close releases pooled connections.
func (p *OpenRouter) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// headers returns the per-request header set, including the OpenRouter
// attribution headers.
func (p *OpenRouter) headers(hasBody bool) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + p.config.APIKey,
		"HTTP-Referer":  p.config.SiteURL,
		"X-Title":       p.config.SiteName,
	}
	if hasBody {
		h["Content-Type"] = "application/json"
	}
	return h
}

// doWithRetry performs one HTTP call with exponential backoff on
// transient failures. Auth errors, rate limits, and bad requests return
// immediately; 5xx and network errors retry up to MaxRetries.
func (p *OpenRouter) doWithRetry(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			p.logger.Debug("retrying request", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		for k, v := range p.headers(body != nil) {
			req.Header.Set(k, v)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout}
			}
			lastErr = err
			p.logger.Warn("request failed, will retry", "attempt", attempt+1, "error", err)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, &ParseError{Provider: p.config.Name, Cause: readErr}
			}
			return respBody, nil
		}

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &AuthError{Provider: p.config.Name, Message: string(respBody)}

		case http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   p.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(respBody),
			}

		case http.StatusBadRequest:
			return nil, &ProviderError{
				Provider:   p.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
			}

		default:
			lastErr = &ProviderError{
				Provider:   p.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
			}
			p.logger.Warn("request returned error status, will retry",
				"status", resp.StatusCode, "attempt", attempt+1)
		}
	}

	return nil, lastErr
}

// parseRetryAfter handles both delay-seconds and HTTP-date forms.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
