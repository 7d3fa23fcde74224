// Package chunker splits normalized document text into overlapping,
// size-bounded segments for indexing.
package chunker

import (
	"strings"

	"github.com/xxxsen/docchat/internal/model"
)

var sentenceBreaks = strings.NewReplacer(". ", ".|", "! ", "!|", "? ", "?|")

// Split segments text into chunks of roughly maxSize characters. Sentences
// are detected by the ". ", "! " and "? " delimiters, a heuristic that does
// not special-case abbreviations or decimals. Sentences accumulate greedily;
// when one would push the buffer past maxSize the buffer is closed and the
// next chunk is seeded with the trailing overlapBudget/5 words of the one
// just closed. A single sentence longer than maxSize is kept whole, so
// chunks may exceed maxSize by up to one sentence. Empty or whitespace-only
// input yields no chunks.
func Split(text string, maxSize int, overlapBudget int) []model.Chunk {
	collapsed := strings.Join(strings.Fields(text), " ")
	if collapsed == "" {
		return nil
	}
	sentences := strings.Split(sentenceBreaks.Replace(collapsed), "|")

	var chunks []model.Chunk
	var current string
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if len(current)+len(sentence) > maxSize {
			if trimmed := strings.TrimSpace(current); trimmed != "" {
				chunks = append(chunks, model.Chunk{Position: len(chunks), Text: trimmed})
			}
			current = seedOverlap(current, sentence, overlapBudget, len(chunks) > 0)
			continue
		}
		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	if trimmed := strings.TrimSpace(current); trimmed != "" {
		chunks = append(chunks, model.Chunk{Position: len(chunks), Text: trimmed})
	}
	return chunks
}

// seedOverlap starts a fresh buffer for sentence, prefixed with the tail of
// the previous buffer. The character budget is converted to a word count by
// dividing by five, an approximation of average word length.
func seedOverlap(previous string, sentence string, overlapBudget int, hasChunks bool) string {
	if !hasChunks || overlapBudget <= 0 {
		return sentence
	}
	words := strings.Fields(previous)
	n := overlapBudget / 5
	if n > len(words) {
		n = len(words)
	}
	if n == 0 {
		return sentence
	}
	return strings.Join(words[len(words)-n:], " ") + " " + sentence
}
