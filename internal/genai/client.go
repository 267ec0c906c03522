package genai

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

	"github.com/sethvargo/go-retry"

	"github.com/Marcusng88/AI-Chatbot/internal/models"
)

const (
	defaultTimeout = 120 * time.Second
	maxRetries     = 2
	retryBase      = time.Second
)

// Client talks to the external AI service through its OpenAI-compatible
// chat completions endpoint. It is used for search query expansion and
// archive content analysis.
type Client struct {
	httpClient  *http.Client
	host        string
	apiKey      string
	model       string
	temperature float64
}

// NewClient creates a client for the AI service at host. An empty host
// disables the client; callers must check Enabled before use.
func NewClient(host, apiKey, model string, temperature float64) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		host:        host,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
	}
}

// Enabled reports whether the client is configured with an upstream host.
func (c *Client) Enabled() bool {
	return c != nil && c.host != ""
}

func (c *Client) chatURL() string {
	return fmt.Sprintf("http://%s/chat/completions", c.host)
}

// Chat sends a non-streaming chat completion request and returns the
// content of the first choice. Transient upstream failures are retried
// with exponential backoff; authentication errors are not.
func (c *Client) Chat(ctx context.Context, messages []models.GenAIMessage) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("AI service is not configured")
	}

	req := models.GenAIChatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      false,
		Temperature: c.temperature,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var content string
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.doChat(ctx, body)
		if err != nil {
			var abort *abortError
			if errors.As(err, &abort) {
				return abort.err
			}
			log.Printf("AI service request failed, will retry: %v", err)
			return retry.RetryableError(err)
		}
		content = resp
		return nil
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

func (c *Client) doChat(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Retrying with the same credentials cannot succeed
		return "", retryAbort(fmt.Errorf("http %d: %s", resp.StatusCode, string(data)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	var chatResp models.GenAIChatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("AI service error: %s (%s)", chatResp.Error.Message, chatResp.Error.Type)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices: %s", string(data))
	}

	return chatResp.Choices[0].Message.Content, nil
}

// abortError marks an error as permanently failed so the retry loop
// stops immediately.
type abortError struct {
	err error
}

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

func retryAbort(err error) error {
	return &abortError{err: err}
}

// stripCodeFence removes a surrounding markdown code fence from model
// output, if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
