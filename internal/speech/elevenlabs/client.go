// Package elevenlabs synthesizes narration chunks with the ElevenLabs
// text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"newsreel/internal/failure"
	"newsreel/internal/speech"
	"newsreel/pkg/httputil"
)

const (
	baseURL      = "https://api.elevenlabs.io/v1"
	timeout      = 120 * time.Second
	defaultModel = "eleven_multilingual_v2"
	outputFormat = "mp3_44100_128"
	serviceName  = "elevenlabs"
	maxErrorBody = 512
)

var _ speech.Synthesizer = (*Client)(nil)

type Client struct {
	apiKeys    []string
	keyIndex   uint64
	httpClient httputil.Doer
	voiceID    string
	model      string
	baseURL    string
	speed      float64
	stability  float64
	similarity float64
}

type Config struct {
	APIKeys    []string
	VoiceID    string
	Model      string
	Speed      float64
	Stability  float64
	Similarity float64
}

type option func(*Client)

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func withBaseURL(url string) option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func withHTTPClient(client httputil.Doer) option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(cfg Config) *Client {
	return newClient(cfg)
}

func newClient(cfg Config, opts ...option) *Client {
	keys := cfg.APIKeys
	if len(keys) == 0 {
		keys = []string{""}
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	c := &Client{
		apiKeys:    keys,
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: timeout}, httputil.DefaultRetryConfig()),
		voiceID:    cfg.VoiceID,
		model:      model,
		baseURL:    baseURL,
		speed:      cfg.Speed,
		stability:  cfg.Stability,
		similarity: cfg.Similarity,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Synthesize returns MP3 audio for text. When a key runs out of quota the
// remaining keys are tried in rotation order.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	startKey := c.nextAPIKey()
	audio, err := c.doRequest(ctx, text, startKey)
	if err == nil || !isQuotaError(err) {
		return audio, err
	}

	for i := 1; i < len(c.apiKeys); i++ {
		key := c.keyAtOffset(i)
		if key == startKey {
			continue
		}
		slog.Debug("ElevenLabs key exhausted, rotating", "offset", i)
		audio, err = c.doRequest(ctx, text, key)
		if err == nil || !isQuotaError(err) {
			return audio, err
		}
	}

	return nil, fmt.Errorf("all API keys exhausted: %w", err)
}

func (c *Client) nextAPIKey() string {
	if len(c.apiKeys) == 1 {
		return c.apiKeys[0]
	}
	idx := atomic.AddUint64(&c.keyIndex, 1)
	return c.apiKeys[idx%uint64(len(c.apiKeys))]
}

func (c *Client) keyAtOffset(offset int) string {
	idx := atomic.LoadUint64(&c.keyIndex)
	return c.apiKeys[(idx+uint64(offset))%uint64(len(c.apiKeys))]
}

func (c *Client) doRequest(ctx context.Context, text, apiKey string) ([]byte, error) {
	req, err := c.buildRequest(ctx, text, apiKey)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &failure.ServiceError{Service: serviceName, Err: fmt.Errorf("send request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &failure.ServiceError{Service: serviceName, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &failure.ServiceError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(msg)),
		}
	}
	if len(body) == 0 {
		return nil, &failure.ServiceError{Service: serviceName, Err: errors.New("empty audio response")}
	}

	return body, nil
}

func isQuotaError(err error) bool {
	var svcErr *failure.ServiceError
	if !errors.As(err, &svcErr) {
		return false
	}
	if svcErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := svcErr.Err.Error()
	return strings.Contains(msg, "quota_exceeded") || strings.Contains(msg, "rate_limit")
}

func (c *Client) buildRequest(ctx context.Context, text, apiKey string) (*http.Request, error) {
	data, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: c.model,
		VoiceSettings: voiceSettings{
			Stability:       c.stability,
			SimilarityBoost: c.similarity,
			Speed:           c.speed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", c.baseURL, c.voiceID, outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	return req, nil
}
