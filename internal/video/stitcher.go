package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"newsreel/internal/failure"
)

// AudioStitcher joins synthesized narration chunks into one track with the
// ffmpeg concat demuxer.
type AudioStitcher struct {
	ffmpegPath string
	tempDir    string
}

func NewAudioStitcher(tempDir string) *AudioStitcher {
	return &AudioStitcher{
		ffmpegPath: "ffmpeg",
		tempDir:    tempDir,
	}
}

// Stitch concatenates chunks in slice order. A single chunk is returned
// unchanged. Per-chunk files live in a scratch directory that is removed
// before returning.
func (s *AudioStitcher) Stitch(ctx context.Context, chunks [][]byte) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, &failure.StitchError{Err: errors.New("no audio chunks")}
	}
	if len(chunks) == 1 {
		return chunks[0], nil
	}

	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		return nil, &failure.StitchError{Chunks: len(chunks), Err: fmt.Errorf("create temp dir: %w", err)}
	}
	scratch, err := os.MkdirTemp(s.tempDir, "stitch-")
	if err != nil {
		return nil, &failure.StitchError{Chunks: len(chunks), Err: fmt.Errorf("create scratch dir: %w", err)}
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	data, err := s.concat(ctx, scratch, chunks)
	if err != nil {
		return nil, &failure.StitchError{Chunks: len(chunks), Err: err}
	}
	return data, nil
}

func (s *AudioStitcher) concat(ctx context.Context, scratch string, chunks [][]byte) ([]byte, error) {
	var list strings.Builder
	for i, audio := range chunks {
		chunkPath := filepath.Join(scratch, fmt.Sprintf("chunk_%04d%s", i, DetectAudioFormat(audio)))
		if err := os.WriteFile(chunkPath, audio, 0644); err != nil {
			return nil, fmt.Errorf("write chunk %d: %w", i, err)
		}
		absPath, err := filepath.Abs(chunkPath)
		if err != nil {
			return nil, fmt.Errorf("resolve chunk path: %w", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(absPath, "'", `'\''`))
	}

	listPath := filepath.Join(scratch, "concat_list.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0644); err != nil {
		return nil, fmt.Errorf("write concat list: %w", err)
	}

	outputPath := filepath.Join(scratch, "stitched.mp3")
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-acodec", "libmp3lame",
		"-q:a", "2",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg concat: %w, output: %s", err, failure.Sanitize(string(output)))
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read stitched audio: %w", err)
	}
	return data, nil
}

// DetectAudioFormat returns a file extension for the audio payload based on
// its magic bytes.
func DetectAudioFormat(data []byte) string {
	if len(data) < 4 {
		return ".bin"
	}

	if data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' {
		return ".wav"
	}

	// ID3 tag or an MPEG frame sync
	if (data[0] == 'I' && data[1] == 'D' && data[2] == '3') ||
		(data[0] == 0xFF && (data[1]&0xE0) == 0xE0) {
		return ".mp3"
	}

	return ".bin"
}
