// Package video wraps ffmpeg: it stitches narration audio, writes the karaoke
// subtitle track and composites the final video.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"newsreel/internal/failure"
	"newsreel/internal/overlay"
)

const (
	defaultFFmpegPath     = "ffmpeg"
	defaultFFprobe        = "ffprobe"
	defaultComposeTimeout = 10 * time.Minute
	videoEndBuffer        = 0.5
)

// Assembler runs the compositor for an overlay.InstructionSet.
type Assembler struct {
	ffmpegPath     string
	ffprobe        string
	width          int
	height         int
	fps            int
	composeTimeout time.Duration
	musicDir       string
	musicVolume    float64
	musicFadeIn    float64
	musicFadeOut   float64
}

type AssemblerOptions struct {
	Resolution     string
	FPS            int
	ComposeTimeout time.Duration
	MusicDir       string
	MusicVolume    float64
	MusicFadeIn    float64
	MusicFadeOut   float64
}

func NewAssembler(opts AssemblerOptions) *Assembler {
	width, height := parseResolution(opts.Resolution)
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}
	timeout := opts.ComposeTimeout
	if timeout <= 0 {
		timeout = defaultComposeTimeout
	}
	musicVolume := opts.MusicVolume
	if musicVolume == 0 {
		musicVolume = 0.15
	}
	musicFadeIn := opts.MusicFadeIn
	if musicFadeIn == 0 {
		musicFadeIn = 1.0
	}
	musicFadeOut := opts.MusicFadeOut
	if musicFadeOut == 0 {
		musicFadeOut = 2.0
	}
	return &Assembler{
		ffmpegPath:     defaultFFmpegPath,
		ffprobe:        defaultFFprobe,
		width:          width,
		height:         height,
		fps:            fps,
		composeTimeout: timeout,
		musicDir:       opts.MusicDir,
		musicVolume:    musicVolume,
		musicFadeIn:    musicFadeIn,
		musicFadeOut:   musicFadeOut,
	}
}

func parseResolution(res string) (int, int) {
	parts := strings.Split(res, "x")
	if len(parts) != 2 {
		return 1080, 1920
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 1080, 1920
	}
	return w, h
}

func (a *Assembler) Size() (int, int) { return a.width, a.height }

// Compose renders set into outputPath. The ffmpeg run is bounded by the
// configured timeout and is not retried.
func (a *Assembler) Compose(ctx context.Context, set overlay.InstructionSet, outputPath string) error {
	if set.BaseImage == "" || set.AudioPath == "" {
		return &failure.CompositorError{Err: errors.New("base image and audio are required")}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return &failure.CompositorError{Err: fmt.Errorf("create output dir: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, a.composeTimeout)
	defer cancel()

	args := a.buildFFmpegArgs(set, outputPath)
	slog.Debug("Running compositor", "draws", len(set.Filters), "duration", set.Duration, "output", outputPath)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.ffmpegPath, args...)
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		_ = os.Remove(outputPath)
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		if timedOut {
			err = fmt.Errorf("after %s: %w", a.composeTimeout, ctx.Err())
		}
		return &failure.CompositorError{
			Diagnostic: stderr.String(),
			TimedOut:   timedOut,
			Err:        err,
		}
	}

	slog.Info("Video composited", "output", outputPath, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func (a *Assembler) buildFilterComplex(set overlay.InstructionSet) string {
	video := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", a.width, a.height),
		fmt.Sprintf("crop=%d:%d", a.width, a.height),
		"format=yuv420p",
	}
	if set.SubtitlePath != "" {
		video = append(video, "ass="+overlay.EscapeFilterPath(set.SubtitlePath))
	}
	video = append(video, set.Filters...)

	return fmt.Sprintf("[0:v]%s[v];%s", strings.Join(video, ","), a.buildAudioFilter(set.MusicPath, set.Duration))
}

func (a *Assembler) buildFFmpegArgs(set overlay.InstructionSet, outputPath string) []string {
	videoDuration := set.Duration + videoEndBuffer

	args := []string{
		"-y",
		"-loop", "1",
		"-framerate", strconv.Itoa(a.fps),
		"-i", set.BaseImage,
		"-i", set.AudioPath,
	}

	if set.MusicPath != "" {
		args = append(args, "-stream_loop", "-1", "-i", set.MusicPath)
	}

	args = append(args,
		"-filter_complex", a.buildFilterComplex(set),
		"-map", "[v]",
		"-map", "[a]",
		"-t", fmt.Sprintf("%.2f", videoDuration),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-ar", "44100",
		"-preset", "fast",
		"-movflags", "+faststart",
		outputPath,
	)

	return args
}

// ProbeDuration returns the duration of a media file in seconds.
func (a *Assembler) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, a.ffprobe, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return dur, nil
}

// SelectMusicTrack picks a random track from the music directory, or "" when
// none is configured.
func (a *Assembler) SelectMusicTrack() string {
	if a.musicDir == "" {
		return ""
	}

	entries, err := os.ReadDir(a.musicDir)
	if err != nil {
		return ""
	}

	var musicFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, ".mp3") || strings.HasSuffix(name, ".wav") || strings.HasSuffix(name, ".m4a") {
			musicFiles = append(musicFiles, filepath.Join(a.musicDir, entry.Name()))
		}
	}

	if len(musicFiles) == 0 {
		return ""
	}

	return musicFiles[rand.Intn(len(musicFiles))]
}

func (a *Assembler) buildAudioFilter(musicPath string, duration float64) string {
	if musicPath == "" {
		return "[1:a]volume=1.0,apad[a]"
	}

	fadeOutStart := max(duration-a.musicFadeOut, 0)

	return fmt.Sprintf(
		"[1:a]volume=1.0,apad[voice];"+
			"[2:a]volume=%.2f,afade=t=in:st=0:d=%.2f,afade=t=out:st=%.2f:d=%.2f[music];"+
			"[voice][music]amix=inputs=2:duration=first:normalize=0[a]",
		a.musicVolume, a.musicFadeIn, fadeOutStart, a.musicFadeOut,
	)
}
