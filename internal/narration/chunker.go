// Package narration splits a script into speech-service-safe chunks and
// synthesizes them with a bounded worker pool.
package narration

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChars is the per-request text limit of the speech services we use.
const DefaultMaxChars = 4096

type Chunk struct {
	Index int
	Text  string
}

// Split breaks script into chunks of at most maxChars runes. Sentences are
// packed greedily; a sentence that does not fit on its own is split on word
// boundaries, and a word that does not fit is cut. The result is never empty.
func Split(script string, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	trimmed := strings.TrimSpace(script)
	if trimmed == "" {
		return []Chunk{{Index: 0, Text: script}}
	}
	if utf8.RuneCountInString(trimmed) <= maxChars {
		return []Chunk{{Index: 0, Text: trimmed}}
	}

	var pieces []string
	for _, sentence := range splitSentences(trimmed) {
		if utf8.RuneCountInString(sentence) <= maxChars {
			pieces = append(pieces, sentence)
			continue
		}
		pieces = append(pieces, splitWords(sentence, maxChars)...)
	}

	texts := pack(pieces, maxChars)
	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{Index: i, Text: text}
	}
	return chunks
}

// splitSentences cuts after '.', '!' or '?' when followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes)-1; i++ {
		if !isSentenceEnd(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func splitWords(sentence string, maxChars int) []string {
	var parts []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			parts = append(parts, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, word := range strings.Fields(sentence) {
		wordLen := utf8.RuneCountInString(word)
		if wordLen > maxChars {
			flush()
			parts = append(parts, hardSplit(word, maxChars)...)
			continue
		}

		needed := wordLen
		if currentLen > 0 {
			needed++
		}
		if currentLen+needed > maxChars {
			flush()
			needed = wordLen
		}
		if currentLen > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
		currentLen += needed
	}
	flush()
	return parts
}

func hardSplit(word string, maxChars int) []string {
	runes := []rune(word)
	var parts []string
	for len(runes) > maxChars {
		parts = append(parts, string(runes[:maxChars]))
		runes = runes[maxChars:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func pack(pieces []string, maxChars int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if currentLen > 0 && currentLen+1+pieceLen > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
