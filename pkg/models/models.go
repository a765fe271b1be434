package models

import "time"

// SourceRow is one statute section as read from the source dataset.
// Rows are immutable input records; one row yields zero or more chunks.
type SourceRow struct {
	Chapter        string `json:"chapter"`
	ChapterName    string `json:"chapter_name"`
	ChapterSubtype string `json:"chapter_subtype"`
	Section        string `json:"section"`
	SectionName    string `json:"section_name"`
	Description    string `json:"description"`
}

// CorpusEntry is the persisted form of a chunk: the chunk text, its
// embedding, and denormalized section metadata so retrieval needs no join.
type CorpusEntry struct {
	ID             int64     `json:"id"`
	Chapter        string    `json:"chapter"`
	ChapterName    string    `json:"chapter_name"`
	ChapterSubtype string    `json:"chapter_subtype"`
	Section        string    `json:"section"`
	SectionName    string    `json:"section_name"`
	Content        string    `json:"content"`
	Embedding      []float32 `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Match is a similarity-search hit. Similarity is in [0,1]; matches are
// produced per query and never persisted.
type Match struct {
	Chapter     string  `json:"chapter"`
	ChapterName string  `json:"chapter_name"`
	Section     string  `json:"section"`
	SectionName string  `json:"section_name"`
	Content     string  `json:"content"`
	Similarity  float64 `json:"similarity"`
}

// Source identifies a statute section cited by an answer, in the order the
// retriever ranked it.
type Source struct {
	Chapter     string  `json:"chapter"`
	ChapterName string  `json:"chapter_name"`
	Section     string  `json:"section"`
	SectionName string  `json:"section_name"`
	Similarity  float64 `json:"similarity"`
}

// Answer is the generated response plus its supporting sections.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// RowFailure records a row the ingestion pipeline could not fully process.
type RowFailure struct {
	Section string `json:"section"`
	Reason  string `json:"reason"`
}

// IngestReport summarizes one ingestion run. Duplicate skips are expected on
// re-runs; Failed rows never block the rest of the batch.
type IngestReport struct {
	Inserted         int          `json:"inserted"`
	SkippedEmpty     int          `json:"skipped_empty"`
	SkippedDuplicate int          `json:"skipped_duplicate"`
	Failed           []RowFailure `json:"failed,omitempty"`
}

// SourceFromMatch copies the citation fields of a match.
func SourceFromMatch(m Match) Source {
	return Source{
		Chapter:     m.Chapter,
		ChapterName: m.ChapterName,
		Section:     m.Section,
		SectionName: m.SectionName,
		Similarity:  m.Similarity,
	}
}
