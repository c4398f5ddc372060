// Package gemini is a minimal client for the Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mathmate-ai/mathmate/internal/config"
)

// ErrNoCandidates indicates a 200 response whose body carried no usable
// candidate text.
var ErrNoCandidates = errors.New("gemini: response contained no candidates")

// APIError is a non-success response from the Gemini API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: API error %d: %s", e.StatusCode, e.Body)
}

// Client calls the Gemini generateContent endpoint. Requests run to
// completion or timeout; there are no retries.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a Gemini client from configuration.
func NewClient(cfg config.GeminiConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GenerateContent sends the parts as a single-turn request and returns the
// first candidate's text.
func (c *Client) GenerateContent(ctx context.Context, parts []Part, genCfg GenerationConfig) (string, error) {
	reqBody := generateRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: genCfg,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		var failure generateResponse
		if err := json.Unmarshal(body, &failure); err == nil && failure.Error != nil && failure.Error.Message != "" {
			msg = failure.Error.Message
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: msg}
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoCandidates
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// Ping issues a tiny text request to verify connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.GenerateContent(ctx,
		[]Part{Text("Hello, can you see this message? Respond with just 'Yes' if you can.")},
		GenerationConfig{MaxOutputTokens: 8},
	)
	return err
}
