// Package provider calls the cloud chat-completions API with sanitized
// payloads and enforces local spend limits.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/acoustixpulse/gateway/internal/anonymize"
	"github.com/acoustixpulse/gateway/internal/config"
)

// Client calls an OpenAI-compatible chat-completions endpoint.
// Messages MUST be redacted before they reach this client; the client does
// no PHI scrubbing of its own.
type Client struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	budget    *BudgetTracker
}

// NewClient creates a provider client from config.
func NewClient(cfg config.ProviderConfig, budget *BudgetTracker) *Client {
	return &Client{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		budget: budget,
	}
}

// Usage holds token counts reported by the provider for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Wire types for the chat-completions request. Content is either a plain
// string or a list of typed parts, matching the OpenAI multimodal shape.
type wireMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type wireTextPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireImagePart struct {
	Type     string       `json:"type"`
	ImageURL wireImageURL `json:"image_url"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Chat sends a system prompt plus redacted conversation to the provider and
// returns the assistant's reply text.
// Flow: budget check, acquire slot, POST, record cost.
func (c *Client) Chat(ctx context.Context, system string, messages []anonymize.Message, temperature float64) (string, Usage, error) {
	if err := c.budget.CheckBudget(); err != nil {
		return "", Usage{}, fmt.Errorf("budget: %w", err)
	}

	release, ok := c.budget.TryAcquire()
	if !ok {
		return "", Usage{}, fmt.Errorf("concurrency limit reached")
	}
	defer release()

	wire := make([]wireMessage, 0, len(messages)+1)
	if system != "" {
		wire = append(wire, wireMessage{Role: "system", Content: system})
	}
	for i, msg := range messages {
		wm, err := toWire(msg)
		if err != nil {
			return "", Usage{}, fmt.Errorf("message %d: %w", i, err)
		}
		wire = append(wire, wm)
	}

	req := chatRequest{
		Model:       c.model,
		Messages:    wire,
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
	}

	start := time.Now()
	resp, err := c.call(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		return "", Usage{}, fmt.Errorf("provider call (%v): %w", elapsed.Round(time.Millisecond), err)
	}

	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("provider returned no choices")
	}

	cost := c.budget.RecordCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	log.Printf("[provider] %s in %v: %d+%d tokens, $%.6f",
		c.model, elapsed.Round(time.Millisecond),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, cost)

	return resp.Choices[0].Message.Content, resp.Usage, nil
}

// BudgetStats returns current budget counters for the metrics endpoint.
func (c *Client) BudgetStats() BudgetStats {
	return c.budget.Stats()
}

// toWire converts a redacted message to the provider wire shape. Image parts
// travel as data URLs.
func toWire(msg anonymize.Message) (wireMessage, error) {
	switch content := msg.Content.(type) {
	case anonymize.Text:
		return wireMessage{Role: string(msg.Role), Content: string(content)}, nil

	case anonymize.Parts:
		parts := make([]interface{}, 0, len(content))
		for j, p := range content {
			switch part := p.(type) {
			case anonymize.TextPart:
				parts = append(parts, wireTextPart{Type: "text", Text: part.Text})
			case anonymize.ImagePart:
				parts = append(parts, wireImagePart{
					Type: "image_url",
					ImageURL: wireImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", part.MIME, part.Data),
					},
				})
			default:
				return wireMessage{}, fmt.Errorf("part %d: unsupported type %T", j, p)
			}
		}
		return wireMessage{Role: string(msg.Role), Content: parts}, nil

	default:
		return wireMessage{}, fmt.Errorf("unsupported content type %T", msg.Content)
	}
}

func (c *Client) call(ctx context.Context, req chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + "/chat/completions"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(string(respBody), 300))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &chatResp, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
