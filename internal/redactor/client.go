package redactor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/aman-churiwal/redaction-gateway/internal/circuitbreaker"
	"github.com/aman-churiwal/redaction-gateway/internal/config"
)

var (
	// ErrRedactionFailed covers every failure mode: network, timeout,
	// parse, empty output, disabled client. Callers must treat them all
	// the same way and never fall back to the unredacted body.
	ErrRedactionFailed = errors.New("redaction failed")

	ErrDisabled = fmt.Errorf("%w: redactor disabled", ErrRedactionFailed)
)

// Client invokes the remote redaction capability. Without a credential
// it is permanently disabled and every call fails immediately: a gated
// response with no working redactor is an error, not a pass-through.
type Client struct {
	enabled         bool
	baseURL         string
	apiKey          string
	model           string
	systemPrompt    string
	timeout         time.Duration
	maxOutputTokens int

	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

func NewClient(cfg config.RedactorConfig) *Client {
	client := &Client{
		enabled:         cfg.Enabled,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		systemPrompt:    cfg.SystemPrompt,
		timeout:         cfg.Timeout(),
		maxOutputTokens: cfg.MaxOutputTokens,
		httpClient:      &http.Client{},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			MaxFailures:     5,
			Timeout:         30 * time.Second,
			HalfOpenSuccess: 1,
		}),
	}

	if client.systemPrompt == "" {
		client.systemPrompt = defaultSystemPrompt
	}

	if client.apiKey == "" && client.enabled {
		log.Println("OPENROUTER_API_KEY not set; redaction disabled")
		client.enabled = false
	}

	return client
}

func (c *Client) Enabled() bool {
	return c.enabled
}

func (c *Client) SystemPrompt() string {
	return c.systemPrompt
}

func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// Redacts the given response body. Synchronous; blocks for at most the
// configured timeout.
func (c *Client) Redact(ctx context.Context, body, contentType string) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}

	var redacted string
	err := c.breaker.Call(func() error {
		var callErr error
		redacted, callErr = c.call(ctx, body, contentType)
		return callErr
	})
	if err != nil {
		if errors.Is(err, ErrRedactionFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrRedactionFailed, err)
	}

	return redacted, nil
}

// The two endpoint shapes the remote side may speak, tried in order.
// The secondary shape only runs when the primary answers "not found" /
// "method not allowed".
type endpointShape struct {
	path  string
	build func(c *Client, input string) interface{}
}

var endpointShapes = []endpointShape{
	{path: "/chat/completions", build: buildChatPayload},
	{path: "/responses", build: buildResponsesPayload},
}

func buildChatPayload(c *Client, input string) interface{} {
	return map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": c.systemPrompt},
			{"role": "user", "content": input},
		},
		"temperature": 0.0,
		"max_tokens":  c.maxOutputTokens,
		// Encourage the model to keep structure
		"top_p": 0.9,
	}
}

func buildResponsesPayload(c *Client, input string) interface{} {
	return map[string]interface{}{
		"model": c.model,
		"input": []map[string]string{
			{"role": "system", "content": c.systemPrompt},
			{"role": "user", "content": input},
		},
		"temperature":       0.0,
		"max_output_tokens": c.maxOutputTokens,
	}
}

func (c *Client) call(ctx context.Context, input, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp *http.Response
	for i, shape := range endpointShapes {
		payload, err := json.Marshal(shape.build(c, input))
		if err != nil {
			return "", fmt.Errorf("%w: encode request: %v", ErrRedactionFailed, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+shape.path, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("%w: build request: %v", ErrRedactionFailed, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrRedactionFailed, err)
		}

		log.Printf("AI API response - shape=%s status=%d duration=%.2fs type=%s len=%d",
			shape.path, resp.StatusCode, time.Since(start).Seconds(), contentType, len(input))

		if (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed) && i+1 < len(endpointShapes) {
			resp.Body.Close()
			continue
		}
		break
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrRedactionFailed, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: unexpected status %d", ErrRedactionFailed, resp.StatusCode)
	}

	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "json") {
		return "", fmt.Errorf("%w: non-JSON response", ErrRedactionFailed)
	}

	content, err := extractContent(respBody)
	if err != nil {
		return "", err
	}

	return content, nil
}

// Success bodies come in three shapes: chat-style choices, a flat
// output_text field, or an output array of content parts. The first
// shape yielding a non-empty string wins.
func extractContent(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: invalid JSON response: %v", ErrRedactionFailed, err)
	}

	if len(parsed.Choices) > 0 {
		if content := parsed.Choices[0].Message.Content; strings.TrimSpace(content) != "" {
			return content, nil
		}
	}

	if strings.TrimSpace(parsed.OutputText) != "" {
		return parsed.OutputText, nil
	}

	if len(parsed.Output) > 0 {
		var joined strings.Builder
		for _, part := range parsed.Output[0].Content {
			joined.WriteString(part.Text)
		}
		if text := strings.TrimSpace(joined.String()); text != "" {
			return text, nil
		}
	}

	return "", fmt.Errorf("%w: no usable content", ErrRedactionFailed)
}
