package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIGenerator(t *testing.T) {
	var got openaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing auth header")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  a thought  "}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(srv.URL, "k", "m")
	text, err := g.Generate(context.Background(), Request{System: "sys", User: "hi", Temperature: 0.9, MaxTokens: 42})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "a thought" {
		t.Errorf("expected trimmed text, got %q", text)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hi" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
	if got.Temperature != 0.9 || got.MaxTokens != 42 || got.TopP != 0.95 || got.Model != "m" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestOpenAIGeneratorEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIGenerator(srv.URL, "", "m").Generate(context.Background(), Request{User: "x"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOllamaGenerator(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":{"role":"assistant","content":"hello"}}`))
	}))
	defer srv.Close()

	text, err := NewOllamaGenerator(srv.URL, "").Generate(context.Background(), Request{User: "x", MaxTokens: 10})
	if err != nil || text != "hello" {
		t.Fatalf("generate: %q, %v", text, err)
	}
	if got.Stream || got.Model != "llama3.1" || len(got.Messages) != 1 {
		t.Errorf("unexpected request %+v", got)
	}
	if got.Options["num_predict"] != float64(10) {
		t.Errorf("expected num_predict 10, got %v", got.Options["num_predict"])
	}
}

func TestGeneratorStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	for name, g := range map[string]Generator{
		"openai": NewOpenAIGenerator(srv.URL, "", ""),
		"ollama": NewOllamaGenerator(srv.URL, ""),
	} {
		if _, err := g.Generate(context.Background(), Request{User: "x"}); err == nil || !strings.Contains(err.Error(), "429") {
			t.Errorf("%s: expected status error, got %v", name, err)
		}
	}
}

func TestRateLimitedHonorsContext(t *testing.T) {
	calls := 0
	inner := Func(func(ctx context.Context, r Request) (string, error) {
		calls++
		return "ok", nil
	})
	g := NewRateLimited(inner, 0.001, 1)

	if _, err := g.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("first call should use the burst: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx, Request{}); err == nil {
		t.Error("expected error from canceled context")
	}
	if calls != 1 {
		t.Errorf("expected 1 inner call, got %d", calls)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Options{Provider: "ollama"}); err != nil {
		t.Errorf("ollama: %v", err)
	}
	if _, err := New(Options{Provider: "nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
