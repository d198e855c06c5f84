package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"newsreel/internal/failure"
)

func newTestClient(cfg Config, url string) *Client {
	return newClient(cfg, withBaseURL(url), withHTTPClient(http.DefaultClient))
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{VoiceID: "voice"})

	if len(client.apiKeys) != 1 || client.apiKeys[0] != "" {
		t.Errorf("apiKeys = %v, want single empty key", client.apiKeys)
	}
	if client.model != defaultModel {
		t.Errorf("model = %q, want %q", client.model, defaultModel)
	}
	if client.baseURL != baseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, baseURL)
	}
}

func TestSynthesize(t *testing.T) {
	fakeAudio := []byte("fake mp3 data")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Error("missing or incorrect API key header")
		}
		if !strings.HasPrefix(r.URL.Path, "/text-to-speech/test-voice") {
			t.Errorf("path = %q", r.URL.Path)
		}

		var body ttsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Text != "Hello world." {
			t.Errorf("text = %q, want Hello world.", body.Text)
		}
		if body.ModelID != defaultModel {
			t.Errorf("model_id = %q", body.ModelID)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(fakeAudio)
	}))
	defer server.Close()

	client := newTestClient(Config{APIKeys: []string{"test-key"}, VoiceID: "test-voice"}, server.URL)
	audio, err := client.Synthesize(context.Background(), "Hello world.")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != string(fakeAudio) {
		t.Errorf("audio = %q, want %q", audio, fakeAudio)
	}
}

func TestSynthesizeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"bad voice"}`))
	}))
	defer server.Close()

	client := newTestClient(Config{APIKeys: []string{"k"}, VoiceID: "v"}, server.URL)
	_, err := client.Synthesize(context.Background(), "text")

	var svcErr *failure.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("error = %v, want *failure.ServiceError", err)
	}
	if svcErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", svcErr.StatusCode)
	}
}

func TestSynthesizeRotatesKeysOnQuota(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("xi-api-key") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":{"status":"quota_exceeded"}}`))
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	client := newTestClient(Config{APIKeys: []string{"spent1", "spent2", "good"}, VoiceID: "v"}, server.URL)
	audio, err := client.Synthesize(context.Background(), "text")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "audio" {
		t.Errorf("audio = %q, want audio", audio)
	}
	if got := atomic.LoadInt32(&calls); got < 2 {
		t.Errorf("calls = %d, want at least 2", got)
	}
}

func TestSynthesizeAllKeysExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(Config{APIKeys: []string{"a", "b"}, VoiceID: "v"}, server.URL)
	_, err := client.Synthesize(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "exhausted") {
		t.Fatalf("error = %v, want exhausted", err)
	}
}

func TestSynthesizeEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(Config{VoiceID: "v"}, server.URL)
	if _, err := client.Synthesize(context.Background(), "text"); err == nil {
		t.Error("expected error for empty audio")
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("quota_exceeded"), want: false},
		{name: "tooManyRequests", err: &failure.ServiceError{StatusCode: 429, Err: errors.New("slow down")}, want: true},
		{name: "quotaBody", err: &failure.ServiceError{StatusCode: 401, Err: errors.New(`"quota_exceeded"`)}, want: true},
		{name: "badRequest", err: &failure.ServiceError{StatusCode: 400, Err: errors.New("bad")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isQuotaError(tt.err); got != tt.want {
				t.Errorf("isQuotaError() = %v, want %v", got, tt.want)
			}
		})
	}
}
