// Package prompt builds the grounded generation prompt from retrieved
// statute sections.
package prompt

import (
	"fmt"
	"strings"

	"github.com/nyayasetu/nyayasetu/pkg/models"
)

// Disclaimer is the fixed sentence the assistant uses when the corpus holds
// no relevant section. The wording is load-bearing: clients match on it.
const Disclaimer = "I could not find a relevant answer in the provided BNS sections."

// Assemble renders the generation prompt. With matches present the prompt
// instructs the model to answer strictly from the supplied sections, in
// retrieval order. With no matches the prompt carries the disclaimer so the
// model reproduces it instead of answering from its own knowledge.
func Assemble(query string, matches []models.Match) string {
	if len(matches) == 0 {
		return fmt.Sprintf("%s\n\nUser's Question:\n%s", Disclaimer, query)
	}

	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, fmt.Sprintf("\nChapter %s - %s\nSection %s: %s\n%s\n",
			m.Chapter, m.ChapterName, m.Section, m.SectionName, m.Content))
	}
	context := strings.Join(blocks, "\n\n")

	return fmt.Sprintf(`You are an AI legal assistant specialized in the Bharatiya Nyaya Sanhita (BNS).
Answer the user's query based only on the provided BNS sections.

Guidelines:
- Treat both the Section titles and the Content as sources of truth.
- If the user's query matches a Section title (even partially), return that Section as relevant.
- If the definition in the Content describes the query, return that Section as relevant.
- Always reference the relevant Chapter and Section numbers.
- If multiple Sections mention the term, summarize them all.
- If nothing matches, say:
  "%s"
- Do not use knowledge outside the given context.

Context:
%s

User's Question:
%s`, Disclaimer, context, query)
}
