package narration

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"newsreel/internal/failure"
	"newsreel/internal/speech"
)

const DefaultWorkers = 3

type AudioChunk struct {
	Index int
	Audio []byte
}

// Synthesize runs synth over every chunk with at most workers calls in
// flight. Results are placed by chunk index, so completion order does not
// matter.
func Synthesize(ctx context.Context, synth speech.Synthesizer, chunks []Chunk, workers int) ([]AudioChunk, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]AudioChunk, len(chunks))
	var succeeded atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, chunk := range chunks {
		g.Go(func() error {
			audio, err := synth.Synthesize(gctx, chunk.Text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunk.Index, err)
			}
			results[i] = AudioChunk{Index: chunk.Index, Audio: audio}
			succeeded.Add(1)
			slog.Debug("Chunk synthesized", "index", chunk.Index, "chars", len(chunk.Text), "bytes", len(audio))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &failure.SynthesisError{
			Succeeded: int(succeeded.Load()),
			Total:     len(chunks),
			Err:       err,
		}
	}

	return results, nil
}

// Audio returns the chunk payloads in index order.
func Audio(chunks []AudioChunk) [][]byte {
	out := make([][]byte, len(chunks))
	for i, c := range chunks {
		out[i] = c.Audio
	}
	return out
}
