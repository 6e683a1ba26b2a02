// Package openai implements the AI client port against an OpenAI-compatible
// HTTP API: chat completions in JSON mode for structured extraction and the
// embeddings endpoint for vectors.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/observability"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/config"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// Client calls an OpenAI-compatible provider. Safe for concurrent use.
type Client struct {
	cfg     config.Config
	chatHC  *http.Client
	embedHC *http.Client

	// Throttle: at most one provider call per LLMMinInterval per process.
	mu       sync.Mutex
	lastCall time.Time
}

// New constructs a provider client with per-operation timeouts from config.
func New(cfg config.Config) *Client {
	return &Client{
		cfg:     cfg,
		chatHC:  &http.Client{Timeout: cfg.LLMTimeout},
		embedHC: &http.Client{Timeout: cfg.EmbedTimeout},
	}
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// throttle blocks until LLMMinInterval has elapsed since the previous call.
func (c *Client) throttle() {
	if c.cfg.LLMMinInterval <= 0 {
		return
	}
	c.mu.Lock()
	wait := c.cfg.LLMMinInterval - time.Since(c.lastCall)
	if wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
	c.mu.Unlock()
}

func readSnippet(r io.Reader, n int) string {
	b, _ := io.ReadAll(io.LimitReader(r, int64(n)))
	return string(b)
}

// ExtractJSON calls chat completions with JSON output mode and returns the raw
// message content. Low temperature keeps extraction near-deterministic.
func (c *Client) ExtractJSON(ctx domain.Context, systemPrompt, userPrompt string) (string, error) {
	if c.cfg.OpenAIAPIKey == "" {
		return "", fmt.Errorf("op=ai.chat: OPENAI_API_KEY missing: %w", domain.ErrInvalidArgument)
	}
	c.throttle()
	body := map[string]any{
		"model":           c.cfg.LLMModel,
		"temperature":     0.1,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	b, _ := json.Marshal(body)
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies.
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+"/chat/completions", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.chatHC.Do(r)
		observability.AIRequestDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())
		if err != nil {
			observability.AIRequestsTotal.WithLabelValues("chat", "error").Inc()
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode == http.StatusTooManyRequests {
			observability.AIRequestsTotal.WithLabelValues("chat", "rate_limited").Inc()
			slog.Warn("ai provider rate limited", slog.String("op", "chat"), slog.Int("status", resp.StatusCode))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			observability.AIRequestsTotal.WithLabelValues("chat", "client_error").Inc()
			slog.Warn("ai provider 4xx", slog.String("op", "chat"), slog.Int("status", resp.StatusCode), slog.String("model", c.cfg.LLMModel), slog.String("body", readSnippet(resp.Body, 512)))
			return backoff.Permanent(statusErr{op: "chat", code: resp.StatusCode})
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			observability.AIRequestsTotal.WithLabelValues("chat", "server_error").Inc()
			slog.Error("ai provider non-2xx", slog.String("op", "chat"), slog.Int("status", resp.StatusCode), slog.String("body", readSnippet(resp.Body, 512)))
			return statusErr{op: "chat", code: resp.StatusCode}
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			observability.AIRequestsTotal.WithLabelValues("chat", "decode_error").Inc()
			return err
		}
		observability.AIRequestsTotal.WithLabelValues("chat", "ok").Inc()
		return nil
	}
	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", fmt.Errorf("op=ai.chat: %w: %v", classify(ctx, err), err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("op=ai.chat: empty completion: %w", domain.ErrSchemaInvalid)
	}
	return out.Choices[0].Message.Content, nil
}

// Embed calls the embeddings endpoint and returns one vector per input, in
// input order.
func (c *Client) Embed(ctx domain.Context, texts []string) ([][]float32, error) {
	if c.cfg.OpenAIAPIKey == "" || c.cfg.EmbeddingsModel == "" {
		slog.Error("embedding credentials missing", slog.Bool("has_api_key", c.cfg.OpenAIAPIKey != ""), slog.String("model", c.cfg.EmbeddingsModel))
		return nil, fmt.Errorf("op=ai.embed: OPENAI_API_KEY or EMBEDDINGS_MODEL missing: %w", domain.ErrInvalidArgument)
	}
	if len(texts) == 0 {
		return nil, nil
	}
	body := map[string]any{
		"model": c.cfg.EmbeddingsModel,
		"input": texts,
	}
	b, _ := json.Marshal(body)
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	op := func() error {
		start := time.Now()
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+"/embeddings", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.embedHC.Do(r)
		observability.AIRequestDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
		if err != nil {
			observability.AIRequestsTotal.WithLabelValues("embed", "error").Inc()
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode == http.StatusTooManyRequests {
			observability.AIRequestsTotal.WithLabelValues("embed", "rate_limited").Inc()
			slog.Warn("ai provider rate limited", slog.String("op", "embed"), slog.Int("status", resp.StatusCode))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			observability.AIRequestsTotal.WithLabelValues("embed", "client_error").Inc()
			slog.Warn("ai provider 4xx", slog.String("op", "embed"), slog.Int("status", resp.StatusCode), slog.String("model", c.cfg.EmbeddingsModel), slog.String("body", readSnippet(resp.Body, 512)))
			return backoff.Permanent(statusErr{op: "embed", code: resp.StatusCode})
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			observability.AIRequestsTotal.WithLabelValues("embed", "server_error").Inc()
			slog.Error("ai provider non-2xx", slog.String("op", "embed"), slog.Int("status", resp.StatusCode), slog.String("body", readSnippet(resp.Body, 512)))
			return statusErr{op: "embed", code: resp.StatusCode}
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			observability.AIRequestsTotal.WithLabelValues("embed", "decode_error").Inc()
			return err
		}
		observability.AIRequestsTotal.WithLabelValues("embed", "ok").Inc()
		return nil
	}
	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("op=ai.embed: %w: %v", classify(ctx, err), err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("op=ai.embed: got %d vectors for %d inputs: %w", len(out.Data), len(texts), domain.ErrSchemaInvalid)
	}
	res := make([][]float32, len(out.Data))
	for i := range out.Data {
		v := make([]float32, len(out.Data[i].Embedding))
		for j := range out.Data[i].Embedding {
			v[j] = float32(out.Data[i].Embedding[j])
		}
		res[i] = v
	}
	return res, nil
}

// statusErr carries the HTTP status through backoff so the final failure can
// be classified. backoff.Retry unwraps Permanent errors before returning.
type statusErr struct {
	op   string
	code int
}

func (e statusErr) Error() string { return fmt.Sprintf("%s status %d", e.op, e.code) }

// classify maps a post-retry failure onto the error taxonomy: deadline and
// context errors become timeouts, 4xx is permanent, everything else is
// transient.
func classify(ctx domain.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return domain.ErrUpstreamTimeout
	}
	var se statusErr
	if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
		return domain.ErrSchemaInvalid
	}
	return domain.ErrUpstreamTransient
}
