package app

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// session owns a job's scratch directory. Everything in it is intermediate;
// the finished video is written to outputDir.
type session struct {
	id        string
	workDir   string
	outputDir string
	name      string
}

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func newSession(jobID, cacheDir, outputDir, title string) (*session, error) {
	workDir := filepath.Join(cacheDir, "jobs", jobID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	sanitized := sanitizeForPath(title)
	if sanitized == "" {
		sanitized = "untitled"
	}
	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}

	return &session{
		id:        jobID,
		workDir:   workDir,
		outputDir: outputDir,
		name:      fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), sanitized),
	}, nil
}

func (s *session) audioPath(ext string) string { return filepath.Join(s.workDir, "narration"+ext) }
func (s *session) subtitlePath() string        { return filepath.Join(s.workDir, "captions.ass") }
func (s *session) videoPath() string           { return filepath.Join(s.outputDir, s.name+".mp4") }

func (s *session) cleanup() error {
	return os.RemoveAll(s.workDir)
}

func sanitizeForPath(s string) string {
	s = strings.ToLower(s)
	s = sanitizeRegex.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
