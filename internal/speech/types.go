package speech

import (
	"context"
	"strings"
)

const DefaultWordsPerMinute = 150.0

// TimedWord is one spoken word on the audio timeline. OriginalText holds the
// punctuation-restored script form once the word has been reconciled.
type TimedWord struct {
	Text         string  `json:"text"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	OriginalText string  `json:"original_text,omitempty"`
}

// Display returns the reconciled text when present, the recognized text otherwise.
func (w TimedWord) Display() string {
	if w.OriginalText != "" {
		return w.OriginalText
	}
	return w.Text
}

// Synthesizer turns one chunk of text into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Estimate spaces one word per script word at an even rate. Used when no
// aligner could produce timestamps.
func Estimate(script string, wordsPerMinute float64) []TimedWord {
	words := strings.Fields(script)
	if len(words) == 0 {
		return nil
	}
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}

	wordDuration := 60.0 / wordsPerMinute
	timings := make([]TimedWord, len(words))
	for i, word := range words {
		start := float64(i) * wordDuration
		timings[i] = TimedWord{
			Text:         word,
			Start:        start,
			End:          start + wordDuration,
			OriginalText: word,
		}
	}
	return timings
}

// EstimateFromDuration stretches word timings across a known duration,
// weighting longer words.
func EstimateFromDuration(text string, duration float64) []TimedWord {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	avgWordDuration := duration / float64(len(words))
	timings := make([]TimedWord, len(words))
	currentTime := 0.0

	for i, word := range words {
		wordDuration := avgWordDuration * (0.8 + 0.4*float64(len(word))/5.0)
		timings[i] = TimedWord{
			Text:         word,
			Start:        currentTime,
			End:          currentTime + wordDuration,
			OriginalText: word,
		}
		currentTime += wordDuration
	}

	if currentTime > 0 {
		scale := duration / currentTime
		for i := range timings {
			timings[i].Start *= scale
			timings[i].End *= scale
		}
	}

	return timings
}

// Normalize enforces Start <= End and non-decreasing starts on ASR output.
func Normalize(words []TimedWord) []TimedWord {
	out := make([]TimedWord, 0, len(words))
	prevStart := 0.0
	for _, w := range words {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" {
			continue
		}
		if w.Start < prevStart {
			w.Start = prevStart
		}
		if w.End < w.Start {
			w.End = w.Start
		}
		prevStart = w.Start
		out = append(out, w)
	}
	return out
}

func Duration(words []TimedWord) float64 {
	if len(words) == 0 {
		return 0
	}
	return words[len(words)-1].End
}

// EstimateDurationFromText returns how long text takes to speak at the given rate.
func EstimateDurationFromText(text string, wordsPerMinute float64) float64 {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	return float64(len(strings.Fields(text))) / wordsPerMinute * 60.0
}
