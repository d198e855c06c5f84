// Package storage provides the base image for a video. Sources are tried in
// priority order by Chain.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// ImageSource produces a local path to a still image.
type ImageSource interface {
	Name() string
	BaseImage(ctx context.Context) (string, error)
}

// Chain returns the first image any of its sources produces.
type Chain struct {
	sources []ImageSource
}

func NewChain(sources ...ImageSource) *Chain {
	return &Chain{sources: sources}
}

type result struct {
	source string
	path   string
	err    error
}

func (c *Chain) BaseImage(ctx context.Context) (string, error) {
	var errs []error
	for _, src := range c.sources {
		res := try(ctx, src)
		if res.err == nil {
			slog.Debug("Base image selected", "source", res.source, "path", res.path)
			return res.path, nil
		}
		slog.Warn("Image source unavailable", "source", res.source, "error", res.err)
		errs = append(errs, fmt.Errorf("%s: %w", res.source, res.err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return "", errors.New("no image sources configured")
	}
	return "", fmt.Errorf("no base image: %w", errors.Join(errs...))
}

func try(ctx context.Context, src ImageSource) result {
	path, err := src.BaseImage(ctx)
	if err == nil && path == "" {
		err = errors.New("empty image path")
	}
	return result{source: src.Name(), path: path, err: err}
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}
