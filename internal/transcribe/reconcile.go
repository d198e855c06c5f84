package transcribe

import (
	"log/slog"
	"strings"
	"unicode"

	"newsreel/internal/speech"
)

const (
	searchWindow = 10

	scoreExact     = 100
	scorePrefix    = 80
	scoreSubstring = 50
	scoreAccept    = scoreSubstring
)

type scriptToken struct {
	raw  string
	norm string
}

// Reconcile copies the script's spelling and punctuation onto recognized
// words. Each word is matched against the next searchWindow script tokens;
// the best match scoring at least scoreAccept moves the cursor past it.
// Words without a good match keep their recognized text.
func Reconcile(asr []speech.TimedWord, script string) []speech.TimedWord {
	tokens := tokenize(script)
	out := make([]speech.TimedWord, len(asr))
	cursor := 0
	unmatched := 0

	for i, word := range asr {
		out[i] = word

		idx, score := bestMatch(normalizeToken(word.Text), tokens, cursor)
		if score < scoreAccept {
			unmatched++
			continue
		}
		out[i].OriginalText = tokens[idx].raw
		cursor = idx + 1
	}

	if unmatched > 0 {
		slog.Debug("Low confidence reconciliation", "unmatched", unmatched, "words", len(asr))
	}
	return out
}

func bestMatch(norm string, tokens []scriptToken, cursor int) (int, int) {
	if norm == "" {
		return -1, 0
	}

	bestIdx, bestScore := -1, 0
	end := min(cursor+searchWindow, len(tokens))
	for i := cursor; i < end; i++ {
		if s := matchScore(norm, tokens[i].norm); s > bestScore {
			bestIdx, bestScore = i, s
		}
	}
	return bestIdx, bestScore
}

func matchScore(asr, script string) int {
	switch {
	case script == "":
		return 0
	case asr == script:
		return scoreExact
	case strings.HasPrefix(script, asr), strings.HasPrefix(asr, script):
		return scorePrefix
	case strings.Contains(script, asr), strings.Contains(asr, script):
		return scoreSubstring
	}
	return 0
}

func tokenize(script string) []scriptToken {
	fields := strings.Fields(script)
	tokens := make([]scriptToken, len(fields))
	for i, f := range fields {
		tokens[i] = scriptToken{raw: f, norm: normalizeToken(f)}
	}
	return tokens
}

func normalizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}
