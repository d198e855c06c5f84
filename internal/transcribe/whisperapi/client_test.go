package whisperapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"newsreel/internal/failure"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "narration.mp3")
	if err := os.WriteFile(path, []byte("ID3fake"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAlign(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q", got)
		}
		if got := r.FormValue("timestamp_granularities[]"); got != "word" {
			t.Errorf("timestamp_granularities[] = %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello world","words":[
			{"word":" hello","start":0.0,"end":0.4},
			{"word":"world","start":0.5,"end":0.9}]}`))
	}))
	defer server.Close()

	client := newClient(Config{APIKey: "secret", BaseURL: server.URL}, withHTTPClient(http.DefaultClient))
	words, err := client.Align(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if words[0].Text != "hello" || words[1].Start != 0.5 {
		t.Errorf("words = %+v", words)
	}
}

func TestAlignServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	client := newClient(Config{BaseURL: server.URL}, withHTTPClient(http.DefaultClient))
	_, err := client.Align(context.Background(), writeAudio(t))

	var svcErr *failure.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("error = %v, want *failure.ServiceError", err)
	}
	if svcErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", svcErr.StatusCode)
	}
}

func TestAlignMissingFile(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Align(context.Background(), "/nonexistent/audio.mp3"); err == nil {
		t.Error("expected error for missing audio")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{})
	if client.baseURL != defaultBaseURL || client.model != defaultModel {
		t.Errorf("defaults = %q %q", client.baseURL, client.model)
	}
	if client.Name() != serviceName {
		t.Errorf("Name() = %q", client.Name())
	}
}
