package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiClient struct {
	config *ClientConfig
	client *genai.Client
}

// NewGeminiClient creates a new client for the Google Gemini API. With an API
// key it talks to the Gemini API directly; otherwise it uses the Vertex AI
// backend with the configured project and location.
func NewGeminiClient(ctx context.Context, config *ClientConfig) (*GeminiClient, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if config.EmbedModel == "" {
		config.EmbedModel = "text-embedding-005"
	}
	if config.GenModel == "" {
		config.GenModel = "gemini-2.5-flash"
	}
	if config.Dim == 0 {
		config.Dim = 768
	}

	cc := genai.ClientConfig{}
	if strings.TrimSpace(config.APIKey) != "" {
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = config.APIKey
	} else {
		cc.Backend = genai.BackendVertexAI
		if config.Location == "" {
			config.Location = "us-central1"
		}
		cc.Project = config.ProjectID
		cc.Location = config.Location
	}

	client, err := genai.NewClient(ctx, &cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		config: config,
		client: client,
	}, nil
}

// Embed implements the embedding functionality using the Gemini API. The
// result is L2-normalized; ingest and query embeddings go through the same
// model and task type.
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	cfg := genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	}

	res, err := c.client.Models.EmbedContent(ctx, c.config.EmbedModel, genai.Text(text), &cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	if res == nil || len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, errors.New("no embedding returned")
	}

	return normalizeL2(res.Embeddings[0].Values), nil
}

// Generate returns the full completion for prompt.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.config.GenModel, genai.Text(prompt), c.genConfig())
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", errors.New("no completion returned")
	}
	return text, nil
}

// GenerateStream adapts the SDK's response iterator into a stream of events
// with explicit start and end markers. A model error surfaces as a terminal
// error event; cancellation stops the producer between fragments.
func (c *GeminiClient) GenerateStream(ctx context.Context, prompt string) (<-chan StreamEvent, error) {
	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		if !send(ctx, ch, StreamEvent{Type: EventStart}) {
			return
		}
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.config.GenModel, genai.Text(prompt), c.genConfig()) {
			if err != nil {
				send(ctx, ch, StreamEvent{Type: EventError, Err: fmt.Errorf("generation failed: %w", err)})
				return
			}
			if t := responseText(resp); t != "" {
				if !send(ctx, ch, StreamEvent{Type: EventDelta, Text: t}) {
					return
				}
			}
		}
		send(ctx, ch, StreamEvent{Type: EventEnd})
	}()
	return ch, nil
}

func (c *GeminiClient) genConfig() *genai.GenerateContentConfig {
	// Temperature zero keeps batch and streamed output identical for the
	// same prompt.
	temp := float32(0)
	return &genai.GenerateContentConfig{
		Temperature: &temp,
	}
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func (c *GeminiClient) Dim() int {
	return c.config.Dim
}
