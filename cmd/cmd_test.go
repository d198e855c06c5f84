package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"newsreel/internal/jobs"
	"newsreel/pkg/config"
)

func TestDefaultConfigYAMLParses(t *testing.T) {
	var cfg config.Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &cfg); err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	if cfg.Speech.Provider != config.ProviderElevenLabs {
		t.Errorf("Speech.Provider = %q", cfg.Speech.Provider)
	}
	if cfg.Narration.MaxChars != 4096 {
		t.Errorf("Narration.MaxChars = %d", cfg.Narration.MaxChars)
	}
}

func TestRemoveChildren(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(dir, name, "nested"), 0755); err != nil {
			t.Fatal(err)
		}
	}

	count, err := removeChildren(dir)
	if err != nil {
		t.Fatalf("removeChildren() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("dir still has %d entries", len(entries))
	}

	if count, err := removeChildren(filepath.Join(dir, "missing")); err != nil || count != 0 {
		t.Errorf("removeChildren(missing) = %d, %v", count, err)
	}
}

func TestWaitForJob(t *testing.T) {
	store := jobs.NewStore()
	id := store.Create(func() {})
	_ = store.Finish(id, "/out/video.mp4", "video ready")

	st, err := waitForJob(store, id, 0)
	if err != nil {
		t.Fatalf("waitForJob() error = %v", err)
	}
	if st.State != jobs.StateReady {
		t.Errorf("state = %q, want ready", st.State)
	}
}

func TestRequired(t *testing.T) {
	check := required("Key")
	if check("  ") == nil {
		t.Error("blank value should fail")
	}
	if check("abc") != nil {
		t.Error("non-empty value should pass")
	}
}
