package app

import (
	"context"
	"errors"

	"newsreel/internal/captions"
	"newsreel/internal/jobs"
	"newsreel/internal/overlay"
	"newsreel/internal/speech"
	"newsreel/internal/transcribe"
	"newsreel/pkg/config"
)

type Aligner interface {
	Align(ctx context.Context, audioPath, script string) transcribe.Alignment
}

type Stitcher interface {
	Stitch(ctx context.Context, chunks [][]byte) ([]byte, error)
}

type Compositor interface {
	Compose(ctx context.Context, set overlay.InstructionSet, outputPath string) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
	SelectMusicTrack() string
}

type ImageSource interface {
	BaseImage(ctx context.Context) (string, error)
}

type SubtitleWriter interface {
	ToASS(lines []captions.Line) string
}

// Publisher copies a finished video somewhere durable and returns its location.
type Publisher interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

type Service struct {
	cfg        *config.Config
	synth      speech.Synthesizer
	aligner    Aligner
	stitcher   Stitcher
	compositor Compositor
	images     ImageSource
	subtitles  SubtitleWriter
	style      overlay.Style
	publisher  Publisher
	jobs       *jobs.Store
	closers    []func() error
}

type ServiceOptions struct {
	Config     *config.Config
	Synth      speech.Synthesizer
	Aligner    Aligner
	Stitcher   Stitcher
	Compositor Compositor
	Images     ImageSource
	Subtitles  SubtitleWriter
	Style      overlay.Style
	Publisher  Publisher
	Jobs       *jobs.Store
	Closers    []func() error
}

func NewService(opts ServiceOptions) *Service {
	store := opts.Jobs
	if store == nil {
		store = jobs.NewStore()
	}
	return &Service{
		cfg:        opts.Config,
		synth:      opts.Synth,
		aligner:    opts.Aligner,
		stitcher:   opts.Stitcher,
		compositor: opts.Compositor,
		images:     opts.Images,
		subtitles:  opts.Subtitles,
		style:      opts.Style,
		publisher:  opts.Publisher,
		jobs:       store,
		closers:    opts.Closers,
	}
}

func (s *Service) Config() *config.Config { return s.cfg }
func (s *Service) Jobs() *jobs.Store      { return s.jobs }

func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
