// Package grok talks to the xAI API, which speaks the OpenAI
// chat-completions wire format.
package grok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/conjugo/gateway/internal/provider"
)

type GrokProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type grokRequest struct {
	Model       string        `json:"model"`
	Messages    []grokMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type grokMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type grokResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []grokChoice `json:"choices"`
	Usage   grokUsage    `json:"usage"`
}

type grokChoice struct {
	Message grokMessage `json:"message"`
}

type grokUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func New(apiKey string) provider.Provider {
	return &GrokProvider{
		apiKey:  apiKey,
		baseURL: "https://api.x.ai/v1",
		client:  http.DefaultClient,
	}
}

func (p *GrokProvider) Send(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	gReq := grokRequest{
		Model: req.Model,
		Messages: []grokMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	body, err := json.Marshal(gReq)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &provider.APIError{
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
		}
	}

	var gResp grokResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return nil, err
	}

	if len(gResp.Choices) == 0 {
		return nil, fmt.Errorf("xai api returned no choices")
	}

	return &provider.Response{
		Text:         gResp.Choices[0].Message.Content,
		InputTokens:  gResp.Usage.PromptTokens,
		OutputTokens: gResp.Usage.CompletionTokens,
		Model:        gResp.Model,
	}, nil
}

func (p *GrokProvider) Name() string {
	return "grok"
}
