// Package rag wires retrieval and generation into the question-answering
// service behind the API.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/nyayasetu/nyayasetu/internal/ai"
	"github.com/nyayasetu/nyayasetu/internal/prompt"
	"github.com/nyayasetu/nyayasetu/internal/store"
	"github.com/nyayasetu/nyayasetu/pkg/models"
)

const (
	DefaultThreshold = 0.8
	DefaultTopK      = 3
)

// Service answers legal questions grounded in the statute corpus.
type Service struct {
	AI    ai.Client
	Store store.EntryStore
	// Threshold is the minimum similarity for a section to count as
	// relevant; TopK caps how many sections feed the prompt.
	Threshold float64
	TopK      int
}

// New creates a Service with the default retrieval parameters.
func New(client ai.Client, s store.EntryStore) *Service {
	return &Service{
		AI:        client,
		Store:     s,
		Threshold: DefaultThreshold,
		TopK:      DefaultTopK,
	}
}

// Retrieve embeds the query and returns the ranked matches. An empty result
// is not an error; it means the corpus holds nothing relevant enough.
func (s *Service) Retrieve(ctx context.Context, query string) ([]models.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}

	vec, err := s.AI.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	matches, err := s.Store.SimilaritySearch(ctx, vec, s.Threshold, s.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	log.Debug().Str("query", query).Int("matches", len(matches)).Msg("retrieval complete")
	return matches, nil
}

// Ask answers a question in one shot. Sources mirror the retrieval ranking;
// a question with no relevant sections still gets an answer, carrying the
// standard disclaimer.
func (s *Service) Ask(ctx context.Context, query string) (models.Answer, error) {
	matches, err := s.Retrieve(ctx, query)
	if err != nil {
		return models.Answer{}, err
	}

	text, err := s.AI.Generate(ctx, prompt.Assemble(strings.TrimSpace(query), matches))
	if err != nil {
		return models.Answer{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return models.Answer{Text: text, Sources: sources(matches)}, nil
}

// AskStream is the streaming variant of Ask. Sources are returned up front,
// before any token arrives, so clients can render citations immediately. The
// event channel follows the ai.StreamEvent contract.
func (s *Service) AskStream(ctx context.Context, query string) ([]models.Source, <-chan ai.StreamEvent, error) {
	matches, err := s.Retrieve(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	events, err := s.AI.GenerateStream(ctx, prompt.Assemble(strings.TrimSpace(query), matches))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return sources(matches), events, nil
}

func sources(matches []models.Match) []models.Source {
	out := make([]models.Source, 0, len(matches))
	for _, m := range matches {
		out = append(out, models.SourceFromMatch(m))
	}
	return out
}
