package app

import (
	"context"
	"log/slog"

	"newsreel/internal/jobs"
	"newsreel/internal/overlay"
	"newsreel/internal/speech"
	"newsreel/internal/speech/elevenlabs"
	"newsreel/internal/storage"
	"newsreel/internal/transcribe"
	"newsreel/internal/transcribe/whisperapi"
	"newsreel/internal/transcribe/whispercpp"
	"newsreel/internal/video"
	"newsreel/pkg/config"
)

func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	var synth speech.Synthesizer
	switch cfg.Speech.Provider {
	case config.ProviderElevenLabs:
		synth = elevenlabs.NewClient(elevenlabs.Config{
			APIKeys:    cfg.APIKeys(),
			VoiceID:    cfg.ElevenLabs.VoiceID,
			Model:      cfg.ElevenLabs.Model,
			Speed:      cfg.ElevenLabs.Speed,
			Stability:  cfg.ElevenLabs.Stability,
			Similarity: cfg.ElevenLabs.Similarity,
		})
	default:
		synth = speech.NewStubSynthesizer(cfg.Speech.WordsPerMinute)
	}

	localStorage := storage.NewLocalStorage(cfg.Video.ImageDir, cfg.Video.OutputDir)
	if err := localStorage.EnsureDirectories(); err != nil {
		return nil, err
	}

	var musicDir string
	if cfg.Music.Enabled {
		musicDir = cfg.Music.Dir
	}

	assembler := video.NewAssembler(video.AssemblerOptions{
		Resolution:     cfg.Video.Resolution,
		FPS:            cfg.Video.FPS,
		ComposeTimeout: cfg.Video.ComposeTimeout,
		MusicDir:       musicDir,
		MusicVolume:    cfg.Music.Volume,
		MusicFadeIn:    cfg.Music.FadeIn,
		MusicFadeOut:   cfg.Music.FadeOut,
	})
	width, height := assembler.Size()

	sources := []storage.ImageSource{localStorage}
	var closers []func() error
	var publisher Publisher

	if cfg.GCS.Enabled {
		gcs, err := storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCS.ImagePrefix, cfg.GCS.VideoPrefix, cfg.Video.CacheDir)
		if err != nil {
			slog.Warn("GCS unavailable, skipping bucket images", "error", err)
		} else {
			sources = append(sources, gcs)
			closers = append(closers, gcs.Close)
			if cfg.GCS.Upload {
				publisher = gcs
			}
		}
	}
	sources = append(sources, storage.NewSolidColor(cfg.Video.FallbackColor, width, height, cfg.Video.CacheDir))

	subtitles := video.NewSubtitleGenerator(video.SubtitleOptions{
		FontName:       cfg.Subtitles.FontName,
		FontSize:       cfg.Subtitles.FontSize,
		PrimaryColor:   cfg.Subtitles.PrimaryColor,
		HighlightColor: cfg.Subtitles.HighlightColor,
		OutlineColor:   cfg.Subtitles.OutlineColor,
		OutlineSize:    cfg.Subtitles.OutlineSize,
		ShadowSize:     cfg.Subtitles.ShadowSize,
		Bold:           cfg.Subtitles.Bold,
		MarginV:        cfg.Subtitles.MarginV,
		Resolution:     cfg.Video.Resolution,
	})

	slog.Debug("Service built",
		"speech", cfg.Speech.Provider,
		"resolution", cfg.Video.Resolution,
		"image_sources", len(sources),
		"publish", publisher != nil,
	)

	return NewService(ServiceOptions{
		Config:     cfg,
		Synth:      synth,
		Aligner:    buildAligner(cfg),
		Stitcher:   video.NewAudioStitcher(cfg.Video.CacheDir),
		Compositor: assembler,
		Images:     storage.NewChain(sources...),
		Subtitles:  subtitles,
		Style:      buildStyle(cfg, width, height),
		Publisher:  publisher,
		Jobs:       jobs.NewStore(),
		Closers:    closers,
	}), nil
}

func buildAligner(cfg *config.Config) *transcribe.Chain {
	var aligners []transcribe.Aligner
	for _, backend := range cfg.Transcription.Backends {
		switch backend {
		case config.BackendWhisperAPI:
			if cfg.OpenAIAPIKey == "" {
				slog.Warn("OPENAI_API_KEY not set, skipping whisper API")
				continue
			}
			aligners = append(aligners, whisperapi.NewClient(whisperapi.Config{
				APIKey:   cfg.OpenAIAPIKey,
				Model:    cfg.Transcription.WhisperModel,
				Language: cfg.Transcription.Language,
			}))
		case config.BackendWhisperCpp:
			if cfg.Transcription.WhisperCppModel == "" {
				slog.Debug("whisper.cpp model not configured, skipping")
				continue
			}
			aligners = append(aligners, whispercpp.New(
				cfg.Transcription.WhisperCppBin,
				cfg.Transcription.WhisperCppModel,
				cfg.Video.CacheDir,
			))
		default:
			slog.Warn("Unknown transcription backend", "backend", backend)
		}
	}
	if len(aligners) == 0 {
		slog.Warn("No transcription backend available, captions will use estimated timings")
	}
	return transcribe.NewChain(cfg.Speech.WordsPerMinute, aligners...)
}

func buildStyle(cfg *config.Config, width, height int) overlay.Style {
	style := overlay.DefaultStyle()
	style.Width = width
	style.Height = height
	style.FontFile = cfg.Overlay.FontFile
	style.FontSize = cfg.Overlay.FontSize
	style.TitleFontSize = cfg.Overlay.TitleFontSize
	style.TickerFontSize = cfg.Overlay.TickerFontSize
	style.TickerSpeed = cfg.Overlay.TickerSpeed
	style.TextColor = cfg.Overlay.TextColor
	style.BoxColor = cfg.Overlay.BoxColor
	style.Palette = overlay.Palette{
		Neutral: cfg.Overlay.TextColor,
		Up:      cfg.Overlay.UpColor,
		Down:    cfg.Overlay.DownColor,
	}
	return style
}
