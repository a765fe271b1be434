package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxLen and DefaultOverlap match the splitter settings the corpus
	// was originally built with.
	DefaultMaxLen  = 1000
	DefaultOverlap = 200
)

// unit is a bounded piece of the input plus the separator that preceded it.
type unit struct {
	text string
	sep  string
}

// Split breaks text into ordered chunks of at most maxLen bytes, cutting on
// the largest natural boundary available: paragraphs first, then sentences,
// then raw characters. Consecutive chunks share up to overlap bytes of
// trailing context, rounded back to a word boundary. Output is deterministic
// for identical input and parameters.
//
// Text shorter than maxLen yields a single trimmed chunk. Empty or
// whitespace-only input yields nil.
func Split(text string, maxLen, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxLen {
		overlap = maxLen / 2
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	cur := ""
	for _, u := range units(text, maxLen, overlap) {
		if cur == "" {
			cur = u.text
			continue
		}
		if len(cur)+len(u.sep)+len(u.text) <= maxLen {
			cur += u.sep + u.text
			continue
		}
		chunks = append(chunks, cur)
		tail := overlapTail(cur, overlap)
		if tail != "" && len(tail)+len(u.sep)+len(u.text) <= maxLen {
			cur = tail + u.sep + u.text
		} else {
			cur = u.text
		}
	}
	if cur != "" {
		chunks = append(chunks, cur)
	}
	return chunks
}

// units flattens text into pieces that each fit in maxLen, preferring
// paragraph boundaries, then sentences, then raw slices.
func units(text string, maxLen, overlap int) []unit {
	var out []unit
	for i, para := range splitParagraphs(text) {
		sep := "\n\n"
		if i == 0 {
			sep = ""
		}
		if len(para) <= maxLen {
			out = append(out, unit{text: para, sep: sep})
			continue
		}
		for j, sent := range splitSentences(para) {
			ssep := " "
			if j == 0 {
				ssep = sep
			}
			if len(sent) <= maxLen {
				out = append(out, unit{text: sent, sep: ssep})
				continue
			}
			for k, piece := range sliceRaw(sent, maxLen-overlap) {
				psep := ""
				if k == 0 {
					psep = ssep
				}
				out = append(out, unit{text: piece, sep: psep})
			}
		}
	}
	return out
}

// splitParagraphs splits on blank lines and drops empty pieces.
func splitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences does basic sentence splitting on terminal punctuation
// followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\n') {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// sliceRaw cuts a string into pieces of at most size bytes, backing cuts off
// to rune boundaries.
func sliceRaw(s string, size int) []string {
	if size <= 0 {
		size = 1
	}
	var out []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = size
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// overlapTail returns the last overlap bytes of s rounded forward to a word
// boundary, or "" when s is too short to lend context.
func overlapTail(s string, overlap int) string {
	if overlap <= 0 || len(s) <= overlap {
		return ""
	}
	start := len(s) - overlap
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	tail := s[start:]
	if i := strings.IndexAny(tail, " \n"); i >= 0 && i+1 < len(tail) {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(tail)
}
