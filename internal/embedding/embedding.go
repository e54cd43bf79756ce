// Package embedding turns text into vectors through pluggable providers.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// MaxInputRunes caps the text sent to a provider.
const MaxInputRunes = 8192

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// Func adapts a plain function to Embedder. Dims reports 0 (unknown).
type Func func(ctx context.Context, text string) (Vector, error)

func (f Func) Embed(ctx context.Context, text string) (Vector, error) { return f(ctx, text) }

func (f Func) Dims() int { return 0 }

// CosineSimilarity returns the cosine of the angle between a and b, or 0 if
// their lengths differ or either is zero.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func truncate(text string) string {
	r := []rune(text)
	if len(r) <= MaxInputRunes {
		return text
	}
	return string(r[:MaxInputRunes])
}

// postJSON sends in as a JSON body and decodes a 200 reply into out.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// OllamaEmbedder embeds through a local Ollama server.
type OllamaEmbedder struct {
	url    string
	model  string
	dims   int
	client *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllamaEmbedder returns an Ollama embedder. An empty model means
// nomic-embed-text, and zero dims means the model's native size.
func NewOllamaEmbedder(baseURL, model string, dims int) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if dims == 0 {
		dims = ollamaDims[model]
	}
	if dims == 0 {
		dims = 768
	}
	return &OllamaEmbedder{
		url:    strings.TrimRight(baseURL, "/") + "/api/embeddings",
		model:  model,
		dims:   dims,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

var ollamaDims = map[string]int{
	"nomic-embed-text":  768,
	"all-minilm":        384,
	"mxbai-embed-large": 1024,
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	var out ollamaResponse
	if err := postJSON(ctx, e.client, e.url, "", ollamaRequest{Model: e.model, Prompt: truncate(text)}, &out); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("ollama: empty embedding")
	}
	return out.Embedding, nil
}

func (e *OllamaEmbedder) Dims() int { return e.dims }

// OpenAIEmbedder embeds through any OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	url     string
	apiKey  string
	model   string
	dims    int
	reduced bool // ask the API to shorten vectors to dims
	client  *http.Client
}

type openaiEmbedRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewOpenAIEmbedder returns an OpenAI-compatible embedder. A non-zero dims
// is sent as the requested output dimension; zero keeps the model's 1536.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dims int) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	e := &OpenAIEmbedder{
		url:     strings.TrimRight(baseURL, "/") + "/embeddings",
		apiKey:  apiKey,
		model:   model,
		dims:    dims,
		reduced: dims > 0,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	if e.dims == 0 {
		e.dims = 1536
	}
	return e
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	in := openaiEmbedRequest{Input: truncate(text), Model: e.model}
	if e.reduced {
		in.Dimensions = e.dims
	}
	var out openaiEmbedResponse
	if err := postJSON(ctx, e.client, e.url, e.apiKey, in, &out); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}
	return out.Data[0].Embedding, nil
}

func (e *OpenAIEmbedder) Dims() int { return e.dims }

// Options selects and configures a provider.
type Options struct {
	Provider string // "ollama" | "openai" | "hashed"
	Model    string
	BaseURL  string
	APIKey   string
	Dims     int
}

// New creates an embedder for the configured provider.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case "ollama":
		return NewOllamaEmbedder(opts.BaseURL, opts.Model, opts.Dims), nil
	case "openai", "":
		return NewOpenAIEmbedder(opts.BaseURL, opts.APIKey, opts.Model, opts.Dims), nil
	case "hashed":
		return NewHashedEmbedder(opts.Dims), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q (valid: ollama, openai, hashed)", opts.Provider)
	}
}
