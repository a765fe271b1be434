// Package ingest turns source rows into embedded corpus entries.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/nyayasetu/nyayasetu/internal/ai"
	"github.com/nyayasetu/nyayasetu/internal/chunker"
	"github.com/nyayasetu/nyayasetu/internal/store"
	"github.com/nyayasetu/nyayasetu/pkg/models"
)

// Pipeline drives ingestion: chunk each row's description, embed the chunks,
// and persist them. A failure in one row never aborts the rest of the run.
type Pipeline struct {
	Store        store.EntryStore
	AI           ai.Client
	ChunkSize    int
	ChunkOverlap int
	// Workers bounds concurrent embedding calls. Zero means NumCPU capped
	// at 8 to avoid overwhelming the provider API.
	Workers int
}

// New creates a Pipeline with default chunking parameters.
func New(s store.EntryStore, client ai.Client) *Pipeline {
	return &Pipeline{
		Store:        s,
		AI:           client,
		ChunkSize:    chunker.DefaultMaxLen,
		ChunkOverlap: chunker.DefaultOverlap,
	}
}

func (p *Pipeline) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	return n
}

// embedChunks embeds all chunks of one row concurrently, preserving chunk
// order in the result. The first error wins; remaining results are discarded.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	type result struct {
		idx int
		vec []float32
		err error
	}

	workChan := make(chan int)
	resultChan := make(chan result, len(chunks))

	var wg sync.WaitGroup
	for w := 0; w < p.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workChan {
				vec, err := p.AI.Embed(ctx, chunks[i])
				resultChan <- result{idx: i, vec: vec, err: err}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for i := range chunks {
			select {
			case workChan <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	vecs := make([][]float32, len(chunks))
	var firstErr error
	for r := range resultChan {
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		vecs[r.idx] = r.vec
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vecs, nil
}

// Run processes rows in order and returns a per-run report. Rows with an
// empty description are counted and skipped; a row whose embedding or insert
// fails is recorded as a failure and the run moves on. Only context
// cancellation stops the run early.
func (p *Pipeline) Run(ctx context.Context, rows []models.SourceRow) (models.IngestReport, error) {
	var report models.IngestReport

	log.Info().Int("rows", len(rows)).Int("workers", p.workers()).Msg("starting ingestion")

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if strings.TrimSpace(row.Description) == "" {
			report.SkippedEmpty++
			log.Debug().Str("section", row.Section).Msg("skipping row with empty description")
			continue
		}

		chunks := chunker.Split(row.Description, p.ChunkSize, p.ChunkOverlap)
		vecs, err := p.embedChunks(ctx, chunks)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed = append(report.Failed, models.RowFailure{
				Section: row.Section,
				Reason:  fmt.Sprintf("embed: %v", err),
			})
			log.Error().Err(err).Str("section", row.Section).Msg("embedding failed")
			continue
		}

		// Inserts stay sequential so a row's chunks land in chunk order;
		// the search tie-break relies on that within-row ordering.
		for i, chunk := range chunks {
			outcome, err := p.Store.InsertIfAbsent(ctx, models.CorpusEntry{
				Chapter:        row.Chapter,
				ChapterName:    row.ChapterName,
				ChapterSubtype: row.ChapterSubtype,
				Section:        row.Section,
				SectionName:    row.SectionName,
				Content:        chunk,
				Embedding:      vecs[i],
			})
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				report.Failed = append(report.Failed, models.RowFailure{
					Section: row.Section,
					Reason:  fmt.Sprintf("insert chunk %d: %v", i, err),
				})
				log.Error().Err(err).Str("section", row.Section).Int("chunk", i).Msg("insert failed")
				break
			}
			switch outcome {
			case store.OutcomeInserted:
				report.Inserted++
			case store.OutcomeDuplicate:
				report.SkippedDuplicate++
				log.Debug().Str("section", row.Section).Int("chunk", i).Msg("duplicate chunk skipped")
			}
		}
	}

	log.Info().
		Int("inserted", report.Inserted).
		Int("skipped_empty", report.SkippedEmpty).
		Int("skipped_duplicate", report.SkippedDuplicate).
		Int("failed", len(report.Failed)).
		Msg("ingestion complete")
	return report, nil
}
