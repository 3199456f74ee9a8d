// Package ollama implements category suggestions with a local Ollama
// model.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mappa/internal/core"
	"mappa/internal/suggest"
)

type Client struct {
	baseURL string
	model   string
	httpc   *http.Client
}

// Ensure interface conformance
var _ suggest.Suggester = (*Client)(nil)

// NewClient builds an Ollama-backed suggester. The timeout bounds the
// whole generate call; model answers slower than that surface as
// ErrSuggestionUnavailable.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) Suggest(ctx context.Context, row core.Row, categories []string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: buildPrompt(row, categories),
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ollama: %w", core.ErrSuggestionUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %w", resp.StatusCode, core.ErrSuggestionUnavailable)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", core.ErrSuggestionUnavailable)
	}

	suggestion := cleanAnswer(out.Response)
	if suggestion == "" {
		return "", fmt.Errorf("empty suggestion: %w", core.ErrSuggestionUnavailable)
	}

	// Model answers drift in casing; settle on the listed spelling when
	// one matches.
	for _, cat := range categories {
		if strings.EqualFold(cat, suggestion) {
			return cat, nil
		}
	}
	return suggestion, nil
}

func buildPrompt(row core.Row, categories []string) string {
	var b strings.Builder
	b.WriteString("You are a financial transaction categorizer. ")
	b.WriteString("Assign exactly one category to the transaction below.\n\n")
	b.WriteString("Available categories: ")
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString("\n\nTransaction:\n")
	for _, f := range row.Data.Fields() {
		fmt.Fprintf(&b, "  %s: %s\n", f.Name, f.Value)
	}
	b.WriteString("\nRespond with ONLY the category name, nothing else.")
	return b.String()
}

func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	// Some models answer with a full explanation; keep the first line.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
