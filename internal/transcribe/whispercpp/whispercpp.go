// Package whispercpp aligns audio with a local whisper.cpp binary.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"newsreel/internal/speech"
)

type Adapter struct {
	bin        string
	model      string
	ffmpegPath string
	workDir    string
}

func New(binPath, modelPath, workDir string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath, ffmpegPath: "ffmpeg", workDir: workDir}
}

func (a *Adapter) Name() string { return "whisper.cpp" }

// output is the subset of whisper.cpp's -oj file we read. With -ml 1 each
// segment holds a single word.
type output struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (a *Adapter) Align(ctx context.Context, audioPath string) ([]speech.TimedWord, error) {
	if a.model == "" {
		return nil, fmt.Errorf("whisper.cpp model path not configured")
	}
	if err := os.MkdirAll(a.workDir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	scratch, err := os.MkdirTemp(a.workDir, "whisper-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	wavPath := filepath.Join(scratch, "input.wav")
	conv := exec.CommandContext(ctx, a.ffmpegPath, "-y", "-i", audioPath, "-ar", "16000", "-ac", "1", "-c:a", "pcm_s16le", wavPath)
	if b, err := conv.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("convert audio for whisper.cpp: %w\n%s", err, string(b))
	}

	outPrefix := filepath.Join(scratch, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-ml", "1",
		"-sow",
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	if b, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("read whisper.cpp output: %w", err)
	}
	return parseOutput(jb)
}

func parseOutput(data []byte) ([]speech.TimedWord, error) {
	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper.cpp output: %w", err)
	}

	words := make([]speech.TimedWord, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		// whisper.cpp emits bracketed markers such as [BLANK_AUDIO]
		if text == "" || strings.HasPrefix(text, "[") {
			continue
		}
		words = append(words, speech.TimedWord{
			Text:  text,
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
		})
	}
	return speech.Normalize(words), nil
}
