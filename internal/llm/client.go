package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

const chatMaxRetries = 3

// Client calls an OpenAI-compatible /chat/completions endpoint (Groq serves
// the same wire format).
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// ClientConfig configures the completion client. APIKeyEnv names the
// environment variable holding the key.
type ClientConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates a completion client. Returns an error if the API key
// environment variable is empty.
func NewClient(cfg ClientConfig) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  key,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends the role as the system message and the prompt as the user
// message, retrying on 429 and 5xx with exponential backoff.
func (c *Client) Complete(ctx context.Context, role Role, prompt string) (string, error) {
	system := fmt.Sprintf("You are %s. Your goal: %s\n%s", role.Name, role.Goal, role.Backstory)
	body, _ := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	url := c.baseURL + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= chatMaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if waitErr := backoff(ctx, attempt, ""); waitErr != nil {
				return "", waitErr
			}
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			retryAfter := resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("completion request failed: %s", resp.Status)
			if waitErr := backoff(ctx, attempt, retryAfter); waitErr != nil {
				return "", waitErr
			}
			continue
		}
		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return "", fmt.Errorf("completion request failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if waitErr := backoff(ctx, attempt, ""); waitErr != nil {
				return "", waitErr
			}
			continue
		}
		var out struct {
			Choices []struct {
				Message chatMessage `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return "", fmt.Errorf("decode completion response: %w", err)
		}
		if len(out.Choices) == 0 {
			return "", fmt.Errorf("completion response has no choices")
		}
		return out.Choices[0].Message.Content, nil
	}
	return "", lastErr
}

// backoff sleeps for an exponential delay (capped at 5s), or the server's
// Retry-After when given. Returns early if ctx is cancelled.
func backoff(ctx context.Context, attempt int, retryAfter string) error {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			d = time.Duration(secs) * time.Second
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
