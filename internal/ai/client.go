package ai

import (
	"context"
	"crypto/sha1"
	"errors"
	"math"
	"strings"
)

// ErrEmptyInput is returned when text to embed is empty or whitespace-only.
// The check runs before any network call.
var ErrEmptyInput = errors.New("empty input")

// EventType labels a streaming generation event.
type EventType string

const (
	EventStart EventType = "start"
	EventDelta EventType = "delta"
	EventEnd   EventType = "end"
	EventError EventType = "error"
)

// StreamEvent is one element of a generation stream. A stream carries exactly
// one start event, zero or more deltas, and a single terminal end or error
// event, after which the channel is closed. Concatenating the delta texts
// reproduces the batch result for the same prompt.
type StreamEvent struct {
	Type EventType
	Text string
	Err  error
}

// Client provides embedding and answer generation.
type Client interface {
	// Embed maps text to an L2-normalized vector of Dim() elements. The same
	// model and normalization are used at ingest and query time.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Generate returns the full completion for a grounded prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStream delivers the same completion incrementally. The returned
	// channel is closed after the terminal event; the producer stops promptly
	// when ctx is cancelled.
	GenerateStream(ctx context.Context, prompt string) (<-chan StreamEvent, error)
	Dim() int
}

// Provider is enumeration of supported AI providers
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderStub   Provider = "stub"
)

// ClientConfig holds configuration for AI clients
type ClientConfig struct {
	APIKey     string
	EmbedModel string
	GenModel   string
	Dim        int
	ProjectID  string
	Provider   Provider
	Location   string
}

// NewClient creates a new AI client based on configuration
func NewClient(ctx context.Context, config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, config)
	case ProviderStub:
		return NewStubClient(config.Dim), nil
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}
}

// normalizeL2 scales v to unit length in place so cosine similarity reduces
// to inner product downstream.
func normalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	n := math.Sqrt(sum)
	if n == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
	return v
}

// send delivers ev unless ctx is cancelled first.
func send(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// StubClient is a deterministic offline implementation of Client, used in
// tests and local development without model credentials.
type StubClient struct {
	dim int

	// Response, when set, is returned verbatim by Generate; otherwise the
	// prompt itself is echoed back.
	Response string
	// FragmentSize controls how GenerateStream slices the text.
	FragmentSize int
}

// NewStubClient creates a new StubClient
func NewStubClient(dim int) *StubClient {
	if dim <= 0 {
		dim = 8
	}
	return &StubClient{dim: dim, FragmentSize: 24}
}

// Embed derives a unit vector from a hash of the text, so identical inputs
// always embed identically.
func (s *StubClient) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	sum := sha1.Sum([]byte(text))
	v := make([]float32, s.dim)
	for i := range v {
		v[i] = float32(sum[i%len(sum)]) + 1
	}
	return normalizeL2(v), nil
}

func (s *StubClient) Generate(_ context.Context, prompt string) (string, error) {
	if s.Response != "" {
		return s.Response, nil
	}
	return prompt, nil
}

func (s *StubClient) GenerateStream(ctx context.Context, prompt string) (<-chan StreamEvent, error) {
	text, err := s.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	size := s.FragmentSize
	if size <= 0 {
		size = 24
	}

	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		if !send(ctx, ch, StreamEvent{Type: EventStart}) {
			return
		}
		for start := 0; start < len(text); start += size {
			end := start + size
			if end > len(text) {
				end = len(text)
			}
			if !send(ctx, ch, StreamEvent{Type: EventDelta, Text: text[start:end]}) {
				return
			}
		}
		send(ctx, ch, StreamEvent{Type: EventEnd})
	}()
	return ch, nil
}

// Dim returns the embedding dimension
func (s *StubClient) Dim() int {
	return s.dim
}
