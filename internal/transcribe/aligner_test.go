package transcribe

import (
	"context"
	"errors"
	"testing"

	"newsreel/internal/speech"
)

type fakeAligner struct {
	name  string
	words []speech.TimedWord
	err   error
	calls int
}

func (f *fakeAligner) Name() string { return f.name }

func (f *fakeAligner) Align(ctx context.Context, audioPath string) ([]speech.TimedWord, error) {
	f.calls++
	return f.words, f.err
}

func TestChainUsesFirstWorkingAligner(t *testing.T) {
	broken := &fakeAligner{name: "broken", err: errors.New("connection refused")}
	working := &fakeAligner{name: "working", words: []speech.TimedWord{
		{Text: "hello", Start: 0, End: 0.4},
		{Text: "world", Start: 0.5, End: 0.9},
	}}
	unused := &fakeAligner{name: "unused"}

	chain := NewChain(150, broken, working, unused)
	got := chain.Align(context.Background(), "narration.mp3", "Hello, world!")

	if got.Degraded {
		t.Error("expected non-degraded alignment")
	}
	if got.Source != "working" {
		t.Errorf("Source = %q, want working", got.Source)
	}
	if unused.calls != 0 {
		t.Error("aligner after a working one should not be called")
	}
	if got.Words[0].Display() != "Hello," || got.Words[1].Display() != "world!" {
		t.Errorf("words not reconciled: %q %q", got.Words[0].Display(), got.Words[1].Display())
	}
}

func TestChainFallsBackOnZeroWords(t *testing.T) {
	empty := &fakeAligner{name: "empty"}
	script := "Markets opened higher today as traders bought the dip"

	got := NewChain(150, empty).Align(context.Background(), "narration.mp3", script)

	if !got.Degraded {
		t.Error("expected degraded alignment")
	}
	if got.Source != estimateSource {
		t.Errorf("Source = %q, want %q", got.Source, estimateSource)
	}
	if len(got.Words) != 9 {
		t.Fatalf("got %d words, want one per script word (9)", len(got.Words))
	}

	const epsilon = 1e-9
	for i, w := range got.Words {
		if d := w.End - w.Start; d < 0.4-epsilon || d > 0.4+epsilon {
			t.Errorf("word %d duration = %v, want 0.4", i, d)
		}
		if i > 0 && w.Start < got.Words[i-1].End-epsilon {
			t.Errorf("word %d overlaps previous", i)
		}
	}
}

func TestChainWithoutAligners(t *testing.T) {
	got := NewChain(0).Align(context.Background(), "x.mp3", "one two")
	if !got.Degraded || len(got.Words) != 2 {
		t.Errorf("got %+v, want degraded estimate with 2 words", got)
	}
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	aligner := &fakeAligner{name: "a", words: []speech.TimedWord{{Text: "x", End: 1}}}
	got := NewChain(150, aligner).Align(ctx, "x.mp3", "x")

	if aligner.calls != 0 {
		t.Error("aligner should not be called after cancellation")
	}
	if !got.Degraded {
		t.Error("expected estimate after cancellation")
	}
}
