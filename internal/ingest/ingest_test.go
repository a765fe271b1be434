package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/nyayasetu/nyayasetu/internal/ai"
	"github.com/nyayasetu/nyayasetu/internal/store"
	"github.com/nyayasetu/nyayasetu/pkg/models"
)

// memStore is an in-memory EntryStore with the same dedup semantics as the
// real one.
type memStore struct {
	entries    []models.CorpusEntry
	seen       map[string]bool
	insertFunc func(ctx context.Context, e models.CorpusEntry) (store.InsertOutcome, error)
}

func newMemStore() *memStore {
	return &memStore{seen: map[string]bool{}}
}

func (m *memStore) Migrate(ctx context.Context, dim int) error { return nil }

func (m *memStore) InsertIfAbsent(ctx context.Context, e models.CorpusEntry) (store.InsertOutcome, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, e)
	}
	h := sha1.Sum([]byte(e.Content))
	key := e.Section + "|" + hex.EncodeToString(h[:])
	if m.seen[key] {
		return store.OutcomeDuplicate, nil
	}
	m.seen[key] = true
	m.entries = append(m.entries, e)
	return store.OutcomeInserted, nil
}

func (m *memStore) SimilaritySearch(ctx context.Context, vec []float32, threshold float64, k int) ([]models.Match, error) {
	return nil, nil
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.entries)), nil
}

func sampleRows() []models.SourceRow {
	return []models.SourceRow{
		{Chapter: "XVII", ChapterName: "Of Offences Against Property", Section: "303", SectionName: "Theft",
			Description: "Whoever, intending to take dishonestly any movable property out of the possession of any person without that person's consent, moves that property in order to such taking, is said to commit theft."},
		{Chapter: "XVII", ChapterName: "Of Offences Against Property", Section: "309", SectionName: "Robbery",
			Description: "In all robbery there is either theft or extortion."},
		{Chapter: "I", ChapterName: "Preliminary", Section: "1", SectionName: "Short title", Description: ""},
		{Chapter: "I", ChapterName: "Preliminary", Section: "2", SectionName: "Definitions", Description: "   \n\t "},
	}
}

func TestRun_Basic(t *testing.T) {
	s := newMemStore()
	p := New(s, ai.NewStubClient(8))

	report, err := p.Run(context.Background(), sampleRows())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Inserted != 2 {
		t.Errorf("Expected 2 inserted, got %d", report.Inserted)
	}
	// Both the empty and the whitespace-only description count as skipped.
	if report.SkippedEmpty != 2 {
		t.Errorf("Expected 2 empty rows skipped, got %d", report.SkippedEmpty)
	}
	if len(report.Failed) != 0 {
		t.Errorf("Expected no failures, got %+v", report.Failed)
	}

	// Entries carry the row's statutory metadata.
	if s.entries[0].Section != "303" || s.entries[0].Chapter != "XVII" {
		t.Errorf("Metadata not carried through: %+v", s.entries[0])
	}
	if len(s.entries[0].Embedding) != 8 {
		t.Errorf("Expected 8-dim embedding, got %d", len(s.entries[0].Embedding))
	}
}

func TestRun_Idempotent(t *testing.T) {
	s := newMemStore()
	p := New(s, ai.NewStubClient(8))
	rows := sampleRows()

	first, err := p.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := p.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if second.Inserted != 0 {
		t.Errorf("Re-run inserted %d entries, want 0", second.Inserted)
	}
	if second.SkippedDuplicate != first.Inserted {
		t.Errorf("Re-run skipped %d duplicates, want %d", second.SkippedDuplicate, first.Inserted)
	}
	if int64(len(s.entries)) != int64(first.Inserted) {
		t.Errorf("Corpus grew on re-run: %d entries", len(s.entries))
	}
}

func TestRun_WhitespaceDescriptionCountedEmpty(t *testing.T) {
	s := newMemStore()
	p := New(s, ai.NewStubClient(8))

	rows := []models.SourceRow{
		{Chapter: "I", Section: "2", SectionName: "Definitions", Description: "   \n\t "},
	}
	report, err := p.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The row must show up in the report as skipped, not vanish.
	if report.SkippedEmpty != 1 {
		t.Errorf("SkippedEmpty = %d, want 1 (report: %+v)", report.SkippedEmpty, report)
	}
	if report.Inserted != 0 || len(s.entries) != 0 {
		t.Errorf("Whitespace-only description must not produce entries: %+v", s.entries)
	}
}

func TestRun_LongDescriptionChunked(t *testing.T) {
	s := newMemStore()
	p := New(s, ai.NewStubClient(8))
	p.ChunkSize = 100
	p.ChunkOverlap = 20

	long := strings.Repeat("The punishment extends to imprisonment of either description. ", 20)
	rows := []models.SourceRow{{Chapter: "II", Section: "4", SectionName: "Punishments", Description: long}}

	report, err := p.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Inserted < 2 {
		t.Errorf("Expected multiple chunks, got %d", report.Inserted)
	}
	for _, e := range s.entries {
		if e.Section != "4" {
			t.Errorf("Chunk lost its section: %+v", e)
		}
	}
}

func TestRun_RowIsolation(t *testing.T) {
	failing := &failingClient{Client: ai.NewStubClient(8), failOn: "extortion"}
	s := newMemStore()
	p := New(s, failing)

	rows := []models.SourceRow{
		{Section: "303", Description: "theft is dishonest taking"},
		{Section: "308", Description: "extortion is putting in fear"},
		{Section: "309", Description: "robbery involves theft"},
	}

	report, err := p.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Inserted != 2 {
		t.Errorf("Expected 2 inserted despite failure, got %d", report.Inserted)
	}
	if len(report.Failed) != 1 || report.Failed[0].Section != "308" {
		t.Errorf("Expected section 308 failure, got %+v", report.Failed)
	}
}

func TestRun_InsertFailureRecorded(t *testing.T) {
	s := newMemStore()
	s.insertFunc = func(ctx context.Context, e models.CorpusEntry) (store.InsertOutcome, error) {
		if e.Section == "309" {
			return store.OutcomeError, errors.New("connection reset")
		}
		return store.OutcomeInserted, nil
	}
	p := New(s, ai.NewStubClient(8))

	rows := []models.SourceRow{
		{Section: "303", Description: "theft"},
		{Section: "309", Description: "robbery"},
	}
	report, err := p.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Inserted != 1 || len(report.Failed) != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(newMemStore(), ai.NewStubClient(8))
	if _, err := p.Run(ctx, sampleRows()); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// failingClient wraps a Client and fails Embed for inputs containing failOn.
type failingClient struct {
	ai.Client
	failOn string
}

func (f *failingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, f.failOn) {
		return nil, errors.New("provider unavailable")
	}
	return f.Client.Embed(ctx, text)
}
