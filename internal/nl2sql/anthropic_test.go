package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestAnthropicCompleterReturnsFirstTextBlock(t *testing.T) {
	var body struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "ak" {
			t.Errorf("X-Api-Key = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test","content":[{"type":"text","text":"SELECT 1"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer server.Close()

	completer, err := NewAnthropicCompleter(AnthropicConfig{BaseURL: server.URL, APIKey: "ak", Model: "claude-test"})
	if err != nil {
		t.Fatalf("NewAnthropicCompleter() error = %v", err)
	}
	got, err := completer.Complete(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "SELECT 1" {
		t.Fatalf("Complete() = %q", got)
	}
	if body.Model != "claude-test" || body.MaxTokens != 1024 {
		t.Fatalf("body = %+v", body)
	}
	if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", body.Messages)
	}
	if content := body.Messages[0].Content; len(content) != 1 || content[0].Text != "prompt text" {
		t.Fatalf("content = %+v", content)
	}
	if completer.Provider() != ProviderAnthropic || completer.Model() != "claude-test" {
		t.Fatalf("provider/model = %s/%s", completer.Provider(), completer.Model())
	}
}

func TestAnthropicCompleterDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer server.Close()

	completer, err := NewAnthropicCompleter(AnthropicConfig{BaseURL: server.URL, APIKey: "ak"})
	if err != nil {
		t.Fatalf("NewAnthropicCompleter() error = %v", err)
	}
	if _, err := completer.Complete(context.Background(), "p"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestNewAnthropicCompleterRequiresKey(t *testing.T) {
	if _, err := NewAnthropicCompleter(AnthropicConfig{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
