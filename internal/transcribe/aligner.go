// Package transcribe obtains word timestamps for narration audio and restores
// the script's punctuation on the recognized words.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"

	"newsreel/internal/failure"
	"newsreel/internal/speech"
)

// Aligner is one transcription backend.
type Aligner interface {
	Name() string
	Align(ctx context.Context, audioPath string) ([]speech.TimedWord, error)
}

// Alignment is the outcome of a Chain run. Degraded is set when the words
// were estimated from the script instead of recognized from audio.
type Alignment struct {
	Words    []speech.TimedWord
	Source   string
	Degraded bool
}

const estimateSource = "estimate"

type Chain struct {
	aligners       []Aligner
	wordsPerMinute float64
}

func NewChain(wordsPerMinute float64, aligners ...Aligner) *Chain {
	if wordsPerMinute <= 0 {
		wordsPerMinute = speech.DefaultWordsPerMinute
	}
	return &Chain{aligners: aligners, wordsPerMinute: wordsPerMinute}
}

type attempt struct {
	source string
	words  []speech.TimedWord
	err    error
}

func (a attempt) usable() bool {
	return a.err == nil && len(a.words) > 0
}

// Align tries each backend in order and returns the first that produced
// words. Recognized words are reconciled against script. When every backend
// fails the words are estimated from script at the configured rate.
func (c *Chain) Align(ctx context.Context, audioPath, script string) Alignment {
	for _, aligner := range c.aligners {
		if ctx.Err() != nil {
			break
		}

		res := c.try(ctx, aligner, audioPath)
		if !res.usable() {
			slog.Warn("Aligner unavailable", "aligner", res.source, "error", res.err)
			continue
		}

		words := Reconcile(speech.Normalize(res.words), script)
		slog.Info("Audio aligned", "aligner", res.source, "words", len(words))
		return Alignment{Words: words, Source: res.source}
	}

	slog.Warn("Falling back to estimated word timings", "error", failure.ErrAlignmentUnavailable)
	return Alignment{
		Words:    speech.Estimate(script, c.wordsPerMinute),
		Source:   estimateSource,
		Degraded: true,
	}
}

func (c *Chain) try(ctx context.Context, aligner Aligner, audioPath string) attempt {
	words, err := aligner.Align(ctx, audioPath)
	if err == nil && len(words) == 0 {
		err = fmt.Errorf("%w: no words recognized", failure.ErrAlignmentUnavailable)
	}
	return attempt{source: aligner.Name(), words: words, err: err}
}
