package storage

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

type LocalStorage struct {
	imageDir  string
	outputDir string
}

func NewLocalStorage(imageDir, outputDir string) *LocalStorage {
	return &LocalStorage{
		imageDir:  imageDir,
		outputDir: outputDir,
	}
}

func (s *LocalStorage) Name() string { return "local" }

func (s *LocalStorage) BaseImage(ctx context.Context) (string, error) {
	images, err := s.ListImages()
	if err != nil {
		return "", err
	}

	if len(images) == 0 {
		return "", fmt.Errorf("no images found in %s", s.imageDir)
	}

	return images[rand.Intn(len(images))], nil
}

func (s *LocalStorage) ListImages() ([]string, error) {
	if s.imageDir == "" {
		return nil, fmt.Errorf("image directory not configured")
	}
	entries, err := os.ReadDir(s.imageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() || !isImage(entry.Name()) {
			continue
		}
		images = append(images, filepath.Join(s.imageDir, entry.Name()))
	}

	return images, nil
}

func (s *LocalStorage) EnsureDirectories() error {
	if s.imageDir != "" {
		if err := os.MkdirAll(s.imageDir, 0755); err != nil {
			return fmt.Errorf("failed to create image directory: %w", err)
		}
	}

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	return nil
}
