package grok

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/conjugo/gateway/internal/provider"
)

func TestSend_Mock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}

		resp := grokResponse{
			ID:    "resp-1",
			Model: "grok-4-fast-non-reasoning",
			Choices: []grokChoice{
				{Message: grokMessage{Role: "assistant", Content: `{"isCorrect":false,"correctedSentence":"Je mange une pomme."}`}},
			},
			Usage: grokUsage{PromptTokens: 100, CompletionTokens: 50},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := &GrokProvider{apiKey: "test-key", baseURL: server.URL, client: server.Client()}

	resp, err := p.Send(context.Background(), &provider.Request{
		Model:        "grok-4-fast-non-reasoning",
		SystemPrompt: "You are a French grammar teacher.",
		UserPrompt:   "Je mange un pomme",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if resp.InputTokens != 100 || resp.OutputTokens != 50 {
		t.Errorf("unexpected usage: %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if resp.Model != "grok-4-fast-non-reasoning" {
		t.Errorf("unexpected model: %s", resp.Model)
	}
}

func TestSend_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer server.Close()

	p := &GrokProvider{apiKey: "test-key", baseURL: server.URL, client: server.Client()}

	_, err := p.Send(context.Background(), &provider.Request{Model: "grok-4", UserPrompt: "hi"})
	apiErr, ok := err.(*provider.APIError)
	if !ok {
		t.Fatalf("expected *provider.APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", apiErr.Status)
	}
	if apiErr.Message != "slow down" {
		t.Errorf("unexpected message: %s", apiErr.Message)
	}
}

func TestName(t *testing.T) {
	if New("key").Name() != "grok" {
		t.Error("expected 'grok'")
	}
}
