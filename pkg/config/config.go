package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config.yaml"

	defaultImageDir        = "./assets/images"
	defaultOutputDir       = "./output"
	defaultCacheDir        = "./.cache"
	defaultMusicDir        = "./assets/music"
	defaultResolution      = "1080x1920"
	defaultFPS             = 30
	defaultComposeTimeout  = 10 * time.Minute
	defaultFallbackColor   = "0x101820"
	defaultSpeechProvider  = "elevenlabs"
	defaultWordsPerMinute  = 150
	defaultElevenLabsVoice = "JBFqnCBsd6RMkjVDRZzb"
	defaultElevenLabsModel = "eleven_multilingual_v2"
	defaultStability       = 0.5
	defaultSimilarity      = 0.75
	defaultSpeed           = 1.0
	defaultMaxChars        = 4096
	defaultWorkers         = 3
	defaultWhisperModel    = "whisper-1"
	defaultLanguage        = "en"
	defaultWhisperCppBin   = "whisper-cli"
	defaultTopicDisplay    = 8.0
	defaultOverlayFont     = "./assets/fonts/Inter-Bold.ttf"
	defaultOverlayFontSize = 44
	defaultTitleFontSize   = 60
	defaultTickerFontSize  = 36
	defaultTickerSpeed     = 120
	defaultTextColor       = "white"
	defaultBoxColor        = "black@0.55"
	defaultUpColor         = "0x16C784"
	defaultDownColor       = "0xEA3943"
	defaultSubtitleFont    = "Arial"
	defaultSubtitleSize    = 64
	defaultPrimaryColor    = "#FFFFFF"
	defaultHighlightColor  = "#FFD700"
	defaultOutlineColor    = "#000000"
	defaultOutlineSize     = 4
	defaultShadowSize      = 2
	defaultMarginV         = 320
	defaultMusicVolume     = 0.15
	defaultMusicFadeIn     = 1.0
	defaultMusicFadeOut    = 2.0
	defaultGCSImagePrefix  = "images"
	defaultGCSVideoPrefix  = "videos"

	ProviderElevenLabs = "elevenlabs"
	ProviderStub       = "stub"

	BackendWhisperAPI = "whisper-api"
	BackendWhisperCpp = "whisper-cpp"
)

type Config struct {
	ElevenLabsAPIKey  string
	ElevenLabsAPIKeys []string
	OpenAIAPIKey      string
	GCSBucket         string
	GCPProject        string

	Speech        SpeechConfig        `yaml:"speech"`
	ElevenLabs    ElevenLabsConfig    `yaml:"elevenlabs"`
	Narration     NarrationConfig     `yaml:"narration"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Timeline      TimelineConfig      `yaml:"timeline"`
	Overlay       OverlayConfig       `yaml:"overlay"`
	Video         VideoConfig         `yaml:"video"`
	Music         MusicConfig         `yaml:"music"`
	Subtitles     SubtitlesConfig     `yaml:"subtitles"`
	GCS           GCSConfig           `yaml:"gcs"`
}

type SpeechConfig struct {
	Provider       string  `yaml:"provider"` // "elevenlabs" or "stub"
	WordsPerMinute float64 `yaml:"words_per_minute"`
}

type ElevenLabsConfig struct {
	VoiceID    string  `yaml:"voice_id"`
	Model      string  `yaml:"model"`
	Speed      float64 `yaml:"speed"`
	Stability  float64 `yaml:"stability"`
	Similarity float64 `yaml:"similarity"`
}

type NarrationConfig struct {
	MaxChars int `yaml:"max_chars"`
	Workers  int `yaml:"workers"`
}

type TranscriptionConfig struct {
	Backends        []string `yaml:"backends"`
	WhisperModel    string   `yaml:"whisper_model"`
	Language        string   `yaml:"language"`
	WhisperCppBin   string   `yaml:"whisper_cpp_bin"`
	WhisperCppModel string   `yaml:"whisper_cpp_model"`
}

type TimelineConfig struct {
	TopicDisplay float64 `yaml:"topic_display"`
}

type OverlayConfig struct {
	FontFile       string  `yaml:"font_file"`
	FontSize       int     `yaml:"font_size"`
	TitleFontSize  int     `yaml:"title_font_size"`
	TickerFontSize int     `yaml:"ticker_font_size"`
	TickerSpeed    float64 `yaml:"ticker_speed"`
	TextColor      string  `yaml:"text_color"`
	BoxColor       string  `yaml:"box_color"`
	UpColor        string  `yaml:"up_color"`
	DownColor      string  `yaml:"down_color"`
}

type VideoConfig struct {
	ImageDir       string        `yaml:"image_dir"`
	OutputDir      string        `yaml:"output_dir"`
	CacheDir       string        `yaml:"cache_dir"`
	Resolution     string        `yaml:"resolution"`
	FPS            int           `yaml:"fps"`
	ComposeTimeout time.Duration `yaml:"compose_timeout"`
	FallbackColor  string        `yaml:"fallback_color"`
}

type MusicConfig struct {
	Enabled bool    `yaml:"enabled"`
	Dir     string  `yaml:"dir"`
	Volume  float64 `yaml:"volume"`
	FadeIn  float64 `yaml:"fade_in"`
	FadeOut float64 `yaml:"fade_out"`
}

type SubtitlesConfig struct {
	FontName       string `yaml:"font_name"`
	FontSize       int    `yaml:"font_size"`
	PrimaryColor   string `yaml:"primary_color"`
	HighlightColor string `yaml:"highlight_color"`
	OutlineColor   string `yaml:"outline_color"`
	OutlineSize    int    `yaml:"outline_size"`
	ShadowSize     int    `yaml:"shadow_size"`
	Bold           bool   `yaml:"bold"`
	MarginV        int    `yaml:"margin_v"`
}

type GCSConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ImagePrefix string `yaml:"image_prefix"`
	VideoPrefix string `yaml:"video_prefix"`
	Upload      bool   `yaml:"upload"`
}

func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, DefaultConfigPath)
}

func LoadFile(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		ElevenLabsAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsAPIKeys: splitKeys(os.Getenv("ELEVENLABS_API_KEYS")),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		GCSBucket:         os.Getenv("GCS_BUCKET"),
		GCPProject:        os.Getenv("GOOGLE_CLOUD_PROJECT"),
	}

	if err := loadYAMLConfig(cfg, path); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if cfg.GCPProject != "" {
		resolveSecrets(ctx, cfg, newSecretManagerAccessor(cfg.GCPProject))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// APIKeys returns every configured ElevenLabs key, the rotation list first.
func (c *Config) APIKeys() []string {
	keys := slices.Clone(c.ElevenLabsAPIKeys)
	if c.ElevenLabsAPIKey != "" && !slices.Contains(keys, c.ElevenLabsAPIKey) {
		keys = append(keys, c.ElevenLabsAPIKey)
	}
	return keys
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Speech.Provider {
	case ProviderElevenLabs:
		if len(c.APIKeys()) == 0 {
			errs = append(errs, errors.New("ELEVENLABS_API_KEY is required for the elevenlabs speech provider"))
		}
	case ProviderStub:
	default:
		errs = append(errs, fmt.Errorf("unknown speech provider %q", c.Speech.Provider))
	}

	for _, backend := range c.Transcription.Backends {
		switch backend {
		case BackendWhisperAPI, BackendWhisperCpp:
		default:
			errs = append(errs, fmt.Errorf("unknown transcription backend %q", backend))
		}
	}

	if c.GCS.Enabled && c.GCSBucket == "" {
		errs = append(errs, errors.New("GCS_BUCKET is required when gcs is enabled"))
	}

	return errors.Join(errs...)
}

func applyDefaults(cfg *Config) {
	applySpeechDefaults(cfg)
	applyElevenLabsDefaults(cfg)
	applyNarrationDefaults(cfg)
	applyTranscriptionDefaults(cfg)
	applyTimelineDefaults(cfg)
	applyOverlayDefaults(cfg)
	applyVideoDefaults(cfg)
	applyMusicDefaults(cfg)
	applySubtitlesDefaults(cfg)
	applyGCSDefaults(cfg)
}

func applySpeechDefaults(cfg *Config) {
	if cfg.Speech.Provider == "" {
		cfg.Speech.Provider = defaultSpeechProvider
	}
	if cfg.Speech.WordsPerMinute == 0 {
		cfg.Speech.WordsPerMinute = defaultWordsPerMinute
	}
}

func applyElevenLabsDefaults(cfg *Config) {
	if cfg.ElevenLabs.VoiceID == "" {
		cfg.ElevenLabs.VoiceID = defaultElevenLabsVoice
	}
	if cfg.ElevenLabs.Model == "" {
		cfg.ElevenLabs.Model = defaultElevenLabsModel
	}
	if cfg.ElevenLabs.Speed == 0 {
		cfg.ElevenLabs.Speed = defaultSpeed
	}
	if cfg.ElevenLabs.Stability == 0 {
		cfg.ElevenLabs.Stability = defaultStability
	}
	if cfg.ElevenLabs.Similarity == 0 {
		cfg.ElevenLabs.Similarity = defaultSimilarity
	}
}

func applyNarrationDefaults(cfg *Config) {
	if cfg.Narration.MaxChars <= 0 {
		cfg.Narration.MaxChars = defaultMaxChars
	}
	if cfg.Narration.Workers <= 0 {
		cfg.Narration.Workers = defaultWorkers
	}
}

func applyTranscriptionDefaults(cfg *Config) {
	if cfg.Transcription.Backends == nil {
		cfg.Transcription.Backends = []string{BackendWhisperAPI, BackendWhisperCpp}
	}
	if cfg.Transcription.WhisperModel == "" {
		cfg.Transcription.WhisperModel = defaultWhisperModel
	}
	if cfg.Transcription.Language == "" {
		cfg.Transcription.Language = defaultLanguage
	}
	if cfg.Transcription.WhisperCppBin == "" {
		cfg.Transcription.WhisperCppBin = defaultWhisperCppBin
	}
}

func applyTimelineDefaults(cfg *Config) {
	if cfg.Timeline.TopicDisplay <= 0 {
		cfg.Timeline.TopicDisplay = defaultTopicDisplay
	}
}

func applyOverlayDefaults(cfg *Config) {
	if cfg.Overlay.FontFile == "" {
		cfg.Overlay.FontFile = defaultOverlayFont
	}
	if cfg.Overlay.FontSize == 0 {
		cfg.Overlay.FontSize = defaultOverlayFontSize
	}
	if cfg.Overlay.TitleFontSize == 0 {
		cfg.Overlay.TitleFontSize = defaultTitleFontSize
	}
	if cfg.Overlay.TickerFontSize == 0 {
		cfg.Overlay.TickerFontSize = defaultTickerFontSize
	}
	if cfg.Overlay.TickerSpeed == 0 {
		cfg.Overlay.TickerSpeed = defaultTickerSpeed
	}
	if cfg.Overlay.TextColor == "" {
		cfg.Overlay.TextColor = defaultTextColor
	}
	if cfg.Overlay.BoxColor == "" {
		cfg.Overlay.BoxColor = defaultBoxColor
	}
	if cfg.Overlay.UpColor == "" {
		cfg.Overlay.UpColor = defaultUpColor
	}
	if cfg.Overlay.DownColor == "" {
		cfg.Overlay.DownColor = defaultDownColor
	}
}

func applyVideoDefaults(cfg *Config) {
	if cfg.Video.ImageDir == "" {
		cfg.Video.ImageDir = defaultImageDir
	}
	if cfg.Video.OutputDir == "" {
		cfg.Video.OutputDir = defaultOutputDir
	}
	if cfg.Video.CacheDir == "" {
		cfg.Video.CacheDir = defaultCacheDir
	}
	if cfg.Video.Resolution == "" {
		cfg.Video.Resolution = defaultResolution
	}
	if cfg.Video.FPS == 0 {
		cfg.Video.FPS = defaultFPS
	}
	if cfg.Video.ComposeTimeout == 0 {
		cfg.Video.ComposeTimeout = defaultComposeTimeout
	}
	if cfg.Video.FallbackColor == "" {
		cfg.Video.FallbackColor = defaultFallbackColor
	}
}

func applyMusicDefaults(cfg *Config) {
	if cfg.Music.Dir == "" {
		cfg.Music.Dir = defaultMusicDir
	}
	if cfg.Music.Volume == 0 {
		cfg.Music.Volume = defaultMusicVolume
	}
	if cfg.Music.FadeIn == 0 {
		cfg.Music.FadeIn = defaultMusicFadeIn
	}
	if cfg.Music.FadeOut == 0 {
		cfg.Music.FadeOut = defaultMusicFadeOut
	}
}

func applySubtitlesDefaults(cfg *Config) {
	if cfg.Subtitles.FontName == "" {
		cfg.Subtitles.FontName = defaultSubtitleFont
	}
	if cfg.Subtitles.FontSize == 0 {
		cfg.Subtitles.FontSize = defaultSubtitleSize
	}
	if cfg.Subtitles.PrimaryColor == "" {
		cfg.Subtitles.PrimaryColor = defaultPrimaryColor
	}
	if cfg.Subtitles.HighlightColor == "" {
		cfg.Subtitles.HighlightColor = defaultHighlightColor
	}
	if cfg.Subtitles.OutlineColor == "" {
		cfg.Subtitles.OutlineColor = defaultOutlineColor
	}
	if cfg.Subtitles.OutlineSize == 0 {
		cfg.Subtitles.OutlineSize = defaultOutlineSize
	}
	if cfg.Subtitles.ShadowSize == 0 {
		cfg.Subtitles.ShadowSize = defaultShadowSize
	}
	if cfg.Subtitles.MarginV == 0 {
		cfg.Subtitles.MarginV = defaultMarginV
	}
}

func applyGCSDefaults(cfg *Config) {
	if cfg.GCS.ImagePrefix == "" {
		cfg.GCS.ImagePrefix = defaultGCSImagePrefix
	}
	if cfg.GCS.VideoPrefix == "" {
		cfg.GCS.VideoPrefix = defaultGCSVideoPrefix
	}
}

func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
