// Package llm generates text from chat-style prompts.
package llm

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

	"golang.org/x/time/rate"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty completion")

// Request is one generation call.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func messages(req Request) []message {
	var msgs []message
	if req.System != "" {
		msgs = append(msgs, message{Role: "system", Content: req.System})
	}
	return append(msgs, message{Role: "user", Content: req.User})
}

// --- OpenAI-compatible Provider ---

// OpenAIGenerator calls an OpenAI-compatible chat completions API.
type OpenAIGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type openaiChatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// NewOpenAIGenerator creates a generator for an OpenAI-compatible API.
func NewOpenAIGenerator(baseURL, apiKey, model string) *OpenAIGenerator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIGenerator{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, r Request) (string, error) {
	body, _ := json.Marshal(openaiChatRequest{
		Model:       g.model,
		Messages:    messages(r),
		Temperature: r.Temperature,
		TopP:        0.95,
		MaxTokens:   r.MaxTokens,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(b))
	}

	var result openaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// --- Ollama Provider ---

// OllamaGenerator uses a local Ollama chat endpoint.
type OllamaGenerator struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message message `json:"message"`
}

// NewOllamaGenerator creates a generator for Ollama.
func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	return &OllamaGenerator{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, r Request) (string, error) {
	opts := map[string]any{"temperature": r.Temperature, "top_p": 0.95}
	if r.MaxTokens > 0 {
		opts["num_predict"] = r.MaxTokens
	}
	body, _ := json.Marshal(ollamaChatRequest{
		Model:    g.model,
		Messages: messages(r),
		Options:  opts,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(b))
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	text := strings.TrimSpace(result.Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// --- Rate limiting ---

// RateLimited throttles calls to the wrapped Generator.
type RateLimited struct {
	inner   Generator
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond calls with the given burst.
func NewRateLimited(inner Generator, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Generate(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Generate(ctx, req)
}

// --- Factory ---

// Options selects and configures a provider.
type Options struct {
	Provider string // "openai" | "ollama"
	Model    string
	BaseURL  string
	APIKey   string
}

// New creates a generator for the configured provider.
func New(opts Options) (Generator, error) {
	switch opts.Provider {
	case "openai", "":
		return NewOpenAIGenerator(opts.BaseURL, opts.APIKey, opts.Model), nil
	case "ollama":
		return NewOllamaGenerator(opts.BaseURL, opts.Model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q (valid: openai, ollama)", opts.Provider)
	}
}
