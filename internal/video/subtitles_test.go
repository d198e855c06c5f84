package video

import (
	"strings"
	"testing"

	"newsreel/internal/captions"
	"newsreel/internal/speech"
)

func TestToASSColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#FFD700", "&H0000D7FF"},
		{"FF0000", "&H000000FF"},
		{"&H00ABCDEF", "&H00ABCDEF"},
		{"bad", "&H00FFFFFF"},
	}

	for _, tt := range tests {
		if got := toASSColor(tt.in); got != tt.want {
			t.Errorf("toASSColor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatASSTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00.00"},
		{1.5, "0:00:01.50"},
		{61.25, "0:01:01.25"},
		{3725.999, "1:02:06.00"},
		{0.29, "0:00:00.29"},
		{-1, "0:00:00.00"},
	}

	for _, tt := range tests {
		if got := formatASSTime(tt.seconds); got != tt.want {
			t.Errorf("formatASSTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestKaraoke(t *testing.T) {
	line := captions.Line{
		Start: 1.0,
		End:   3.0,
		Words: []speech.TimedWord{
			{Text: "bitcoin", OriginalText: "Bitcoin", Start: 1.0, End: 1.4},
			{Text: "is", Start: 1.45, End: 1.6},
			{Text: "up", OriginalText: "up.", Start: 2.0, End: 2.3},
		},
	}

	got := karaoke(line)
	want := `{\k40}Bitcoin {\k15}is{\k40} {\k30}up.`
	if got != want {
		t.Errorf("karaoke() = %q, want %q", got, want)
	}
}

func TestKaraokeLeadingPause(t *testing.T) {
	line := captions.Line{
		Start: 0,
		End:   2,
		Words: []speech.TimedWord{{Text: "Hello", Start: 0.5, End: 1.0}},
	}

	if got := karaoke(line); got != `{\k50}{\k50}Hello` {
		t.Errorf("karaoke() = %q", got)
	}
}

func TestKaraokeLineStartsAfterFirstWord(t *testing.T) {
	// the caption builder pushed this line 0.1s past its first word
	line := captions.Line{
		Start: 1.1,
		End:   1.6,
		Words: []speech.TimedWord{
			{Text: "Bitcoin", Start: 1.0, End: 1.4},
			{Text: "is", Start: 1.45, End: 1.6},
		},
	}

	got := karaoke(line)
	if want := `{\k30}Bitcoin {\k15}is`; got != want {
		t.Errorf("karaoke() = %q, want %q", got, want)
	}
}

func TestSanitizeASS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"{\\b1}bold", "(\\\\b1)bold"},
		{"one,two", "one‚two"},
		{"line\nbreak", "line\\Nbreak"},
		{"  padded ", "padded"},
	}

	for _, tt := range tests {
		if got := sanitizeASS(tt.in); got != tt.want {
			t.Errorf("sanitizeASS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToASS(t *testing.T) {
	gen := NewSubtitleGenerator(SubtitleOptions{
		FontName:   "Montserrat",
		FontSize:   72,
		Bold:       true,
		Resolution: "1080x1920",
	})

	words := []speech.TimedWord{
		{Text: "markets", OriginalText: "Markets,", Start: 0, End: 0.5},
		{Text: "up", OriginalText: "up!", Start: 0.5, End: 0.9},
	}
	lines := captions.Build(words)
	ass := gen.ToASS(lines)

	for _, want := range []string{
		"[Script Info]",
		"PlayResX: 1080",
		"PlayResY: 1920",
		"Style: Default,Montserrat,72,&H0000D7FF,&H00FFFFFF,&H00000000,&H80000000,-1,",
		"Dialogue: 0,0:00:00.00,0:00:00.90,Default,,0,0,0,,{\\k50}Markets‚ {\\k40}up!",
	} {
		if !strings.Contains(ass, want) {
			t.Errorf("ToASS() missing %q\n%s", want, ass)
		}
	}

	if n := strings.Count(ass, "Dialogue:"); n != len(lines) {
		t.Errorf("got %d dialogue events, want %d", n, len(lines))
	}
}

func TestNewSubtitleGeneratorDefaults(t *testing.T) {
	gen := NewSubtitleGenerator(SubtitleOptions{})
	if gen.fontName != "Arial" || gen.fontSize != 64 || gen.width != 1080 || gen.height != 1920 {
		t.Errorf("defaults = %+v", gen)
	}
}
