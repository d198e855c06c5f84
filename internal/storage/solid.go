package storage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SolidColor renders a single-colour frame with ffmpeg's lavfi source. It is
// the last resort when no image library is reachable.
type SolidColor struct {
	ffmpegPath string
	color      string
	width      int
	height     int
	cacheDir   string
}

func NewSolidColor(color string, width, height int, cacheDir string) *SolidColor {
	if color == "" {
		color = "0x101820"
	}
	return &SolidColor{
		ffmpegPath: "ffmpeg",
		color:      color,
		width:      width,
		height:     height,
		cacheDir:   cacheDir,
	}
}

func (s *SolidColor) Name() string { return "solid-color" }

func (s *SolidColor) BaseImage(ctx context.Context) (string, error) {
	name := fmt.Sprintf("solid_%s_%dx%d.png", strings.TrimPrefix(s.color, "#"), s.width, s.height)
	outFile := filepath.Join(s.cacheDir, name)
	if _, err := os.Stat(outFile); err == nil {
		return outFile, nil
	}

	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath, "-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=1", s.color, s.width, s.height),
		"-frames:v", "1",
		outFile,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("render solid frame: %w, output: %s", err, string(output))
	}

	return outFile, nil
}
