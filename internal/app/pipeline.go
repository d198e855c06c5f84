package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"newsreel/internal/app/model"
	"newsreel/internal/captions"
	"newsreel/internal/failure"
	"newsreel/internal/jobs"
	"newsreel/internal/narration"
	"newsreel/internal/overlay"
	"newsreel/internal/speech"
	"newsreel/internal/timeline"
	"newsreel/internal/transcribe"
	"newsreel/internal/video"
)

type Pipeline struct {
	service *Service
}

type Result struct {
	JobID     string
	VideoPath string
	Duration  float64
	Degraded  bool
	Published string
}

// generation carries one job through its stages.
type generation struct {
	ctx      context.Context
	pipeline *Pipeline
	jobID    string
	req      model.Request
	session  *session
}

func NewPipeline(service *Service) *Pipeline {
	return &Pipeline{service: service}
}

// Start registers a job and runs it in the background. The job stops when
// ctx is cancelled or the job is cancelled through the store.
func (pipeline *Pipeline) Start(ctx context.Context, req model.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid request: %w", err)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	id := pipeline.service.Jobs().Create(cancel)

	go func() {
		_, _ = pipeline.Run(jobCtx, id, req)
	}()

	return id, nil
}

// Run executes every stage for an already registered job and records the
// terminal status. Intermediates are removed whether or not it succeeds.
func (pipeline *Pipeline) Run(ctx context.Context, jobID string, req model.Request) (*Result, error) {
	result, err := pipeline.run(ctx, jobID, req)
	store := pipeline.service.Jobs()

	if err != nil {
		logFailure(jobID, err)
		_ = store.Fail(jobID, err)
		return nil, err
	}

	message := "video ready"
	if result.Degraded {
		message = "video ready (captions use estimated timings)"
	}
	if result.Published != "" {
		message += ", published to " + result.Published
	}
	_ = store.Finish(jobID, result.VideoPath, message)
	return result, nil
}

func (pipeline *Pipeline) run(ctx context.Context, jobID string, req model.Request) (*Result, error) {
	cfg := pipeline.service.Config()

	sess, err := newSession(jobID, cfg.Video.CacheDir, cfg.Video.OutputDir, req.Title)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sess.cleanup(); err != nil {
			slog.Warn("Failed to remove intermediates", "job", jobID, "error", err)
		}
	}()

	g := &generation{
		ctx:      ctx,
		pipeline: pipeline,
		jobID:    jobID,
		req:      req,
		session:  sess,
	}
	return g.execute()
}

func (g *generation) execute() (*Result, error) {
	svc := g.pipeline.service

	if err := g.progress(jobs.StateSynthesizingAudio, 5, "synthesizing narration"); err != nil {
		return nil, err
	}
	audioPath, err := g.synthesizeAudio()
	if err != nil {
		return nil, err
	}
	duration, probed := g.audioDuration(audioPath)

	if err := g.progress(jobs.StateAligningCaptions, 35, "aligning captions"); err != nil {
		return nil, err
	}
	alignment := svc.aligner.Align(g.ctx, audioPath, g.req.Script)
	if alignment.Degraded {
		slog.Warn("Captions use estimated timings", "job", g.jobID)
		if probed {
			alignment = fitEstimate(alignment, g.req.Script, duration)
		}
	}
	if duration <= 0 {
		duration = speech.Duration(alignment.Words)
	}

	lines := captions.Build(alignment.Words)
	subtitlePath := g.session.subtitlePath()
	if err := os.WriteFile(subtitlePath, []byte(svc.subtitles.ToASS(lines)), 0644); err != nil {
		return nil, fmt.Errorf("write subtitles: %w: %w", failure.ErrEncoding, err)
	}
	slog.Debug("Captions built", "job", g.jobID, "lines", len(lines), "source", alignment.Source)

	if err := g.progress(jobs.StateSchedulingOverlays, 55, "scheduling overlays"); err != nil {
		return nil, err
	}
	events := g.scheduleOverlays(duration)

	baseImage, err := svc.images.BaseImage(g.ctx)
	if err != nil {
		return nil, err
	}

	set, err := overlay.Build(events, overlay.Sources{
		BaseImage:    baseImage,
		AudioPath:    audioPath,
		SubtitlePath: subtitlePath,
		MusicPath:    svc.compositor.SelectMusicTrack(),
		Duration:     duration,
	}, svc.style)
	if err != nil {
		return nil, fmt.Errorf("build overlays: %w", err)
	}

	if err := g.progress(jobs.StateCompositing, 70, "compositing video"); err != nil {
		return nil, err
	}
	videoPath := g.session.videoPath()
	if err := svc.compositor.Compose(g.ctx, set, videoPath); err != nil {
		return nil, err
	}
	slog.Info("Video composed", "job", g.jobID, "path", videoPath, "duration", duration)

	result := &Result{
		JobID:     g.jobID,
		VideoPath: videoPath,
		Duration:  duration,
		Degraded:  alignment.Degraded,
	}

	if svc.publisher != nil {
		_ = g.progress(jobs.StateCompositing, 95, "publishing video")
		uri, err := svc.publisher.Upload(g.ctx, videoPath)
		if err != nil {
			slog.Warn("Publishing failed, keeping local video", "job", g.jobID, "error", err)
		} else {
			result.Published = uri
		}
	}

	return result, nil
}

func (g *generation) synthesizeAudio() (string, error) {
	svc := g.pipeline.service
	cfg := svc.Config()

	chunks := narration.Split(g.req.Script, cfg.Narration.MaxChars)
	slog.Info("Synthesizing narration", "job", g.jobID, "chunks", len(chunks), "chars", len(g.req.Script))

	audio, err := narration.Synthesize(g.ctx, svc.synth, chunks, cfg.Narration.Workers)
	if err != nil {
		return "", err
	}
	_ = g.progress(jobs.StateSynthesizingAudio, 25, "joining audio")

	stitched, err := svc.stitcher.Stitch(g.ctx, narration.Audio(audio))
	if err != nil {
		return "", err
	}

	path := g.session.audioPath(video.DetectAudioFormat(stitched))
	if err := os.WriteFile(path, stitched, 0644); err != nil {
		return "", fmt.Errorf("save audio: %w", err)
	}
	return path, nil
}

// audioDuration probes the stitched narration. A failed probe falls back to
// an estimate from the script and reports probed as false.
func (g *generation) audioDuration(path string) (float64, bool) {
	svc := g.pipeline.service

	dur, err := svc.compositor.ProbeDuration(g.ctx, path)
	if err == nil && dur > 0 {
		return dur, true
	}
	slog.Warn("Could not probe audio duration, estimating", "job", g.jobID, "error", err)
	return speech.EstimateDurationFromText(g.req.Script, svc.Config().Speech.WordsPerMinute), false
}

// fitEstimate replaces rate-based estimated timings with ones stretched over
// the measured audio length.
func fitEstimate(a transcribe.Alignment, script string, duration float64) transcribe.Alignment {
	words := speech.EstimateFromDuration(script, duration)
	if len(words) == 0 {
		return a
	}
	a.Words = words
	return a
}

func (g *generation) scheduleOverlays(duration float64) []timeline.Event {
	prices, collectibles := timeline.Terms(g.req)
	tl := timeline.Schedule(timeline.Input{
		Duration:         duration,
		Script:           g.req.Script,
		Topics:           topicTitles(g.req.Topics),
		PriceTerms:       prices,
		CollectibleTerms: collectibles,
		TopicDisplay:     g.pipeline.service.Config().Timeline.TopicDisplay,
	})

	events := timeline.Events(tl, g.req)
	slog.Debug("Overlays scheduled", "job", g.jobID, "events", len(events), "topics", len(tl.Topics))
	return events
}

func (g *generation) progress(state jobs.State, percent int, message string) error {
	if err := g.ctx.Err(); err != nil {
		return err
	}
	return g.pipeline.service.Jobs().Update(g.jobID, state, percent, message)
}

func logFailure(jobID string, err error) {
	var compErr *failure.CompositorError
	if errors.As(err, &compErr) {
		slog.Error("Compositor failed", "job", jobID, "timed_out", compErr.TimedOut, "diagnostic", compErr.Diagnostic)
		return
	}
	slog.Error("Job failed", "job", jobID, "error", err)
}
