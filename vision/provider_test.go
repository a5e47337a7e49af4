package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantType string
	}{
		{"openai", "*vision.openAIProvider"},
		{"ollama", "*vision.ollamaProvider"},
		{"gemini", "*vision.geminiProvider"},
		{"custom", "*vision.openAICompatProvider"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, Model: "test-model"})
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			gotType := fmt.Sprintf("%T", p)
			if gotType != tt.wantType {
				t.Errorf("NewProvider(%q) type = %s, want %s", tt.provider, gotType, tt.wantType)
			}
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "doesnotexist"})
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
}

func TestNewProviderAzureRequiresEndpoint(t *testing.T) {
	_, err := NewProvider(Config{Provider: "azure", Model: "gpt-4o"})
	if err == nil {
		t.Fatal("expected error for azure without endpoint")
	}
}

func TestDescribeSendsContextAndImage(t *testing.T) {
	var captured struct {
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{
			"model": "test-model",
			"choices": [{"message": {"content": "A simple line drawing of a house."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 12, "total_tokens": 132}
		}`)
	}))
	defer srv.Close()

	p := NewOpenAICompat(Config{Provider: "custom", Model: "test-model", BaseURL: srv.URL})
	desc, err := p.Describe(context.Background(), Request{
		ImageData: []byte("fake-png-bytes"),
		Format:    "PNG",
		Context:   "[Document: Title: Housing Study]",
	})
	if err != nil {
		t.Fatalf("describe: %v", err)
	}

	if desc.Text != "A simple line drawing of a house." {
		t.Errorf("unexpected text: %q", desc.Text)
	}
	if desc.PromptTokens != 120 || desc.CompletionTokens != 12 {
		t.Errorf("unexpected usage: %+v", desc)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(captured.Messages))
	}
	user := string(captured.Messages[1].Content)
	if !strings.Contains(user, "Housing Study") {
		t.Error("merged context missing from user message")
	}
	if !strings.Contains(user, "data:image/png;base64,") {
		t.Error("image data URL missing from user message")
	}
}

func TestDescribeRetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"choices": [{"message": {"content": "Recovered answer."}}], "usage": {}}`)
	}))
	defer srv.Close()

	p := NewOpenAICompat(Config{Provider: "custom", Model: "m", BaseURL: srv.URL})
	desc, err := p.Describe(context.Background(), Request{ImageData: []byte("x"), Format: "PNG"})
	if err != nil {
		t.Fatalf("describe should retry past a 503: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	if desc.Text != "Recovered answer." {
		t.Errorf("unexpected text: %q", desc.Text)
	}
}

func TestDescribeDoesNotRetryClientError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "bad request"}`)
	}))
	defer srv.Close()

	p := NewOpenAICompat(Config{Provider: "custom", Model: "m", BaseURL: srv.URL})
	_, err := p.Describe(context.Background(), Request{ImageData: []byte("x"), Format: "PNG"})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if attempts != 1 {
		t.Errorf("400 must not be retried, got %d attempts", attempts)
	}
}

func TestDescribeRejectsEmptyPayload(t *testing.T) {
	p := NewOpenAICompat(Config{Provider: "custom", Model: "m", BaseURL: "http://unused"})
	if _, err := p.Describe(context.Background(), Request{Format: "PNG"}); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestEstimateCost(t *testing.T) {
	got := estimateCost("gpt-4o-mini", 1000, 100)
	want := 1000*0.15/1e6 + 100*0.60/1e6
	if got != want {
		t.Errorf("estimateCost = %v, want %v", got, want)
	}
	if estimateCost("unknown-model", 1000, 100) != 0 {
		t.Error("unknown models should cost zero")
	}
	if estimateCost("gpt-4o-2024-08-06", 10, 10) == 0 {
		t.Error("version-suffixed model should match its base rate")
	}
}
