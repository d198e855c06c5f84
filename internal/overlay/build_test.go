package overlay

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"newsreel/internal/failure"
	"newsreel/internal/timeline"
)

func sampleEvents() []timeline.Event {
	rows := testRows()
	return []timeline.Event{
		{Kind: timeline.KindSentiment, Start: 0, End: 15, FadeIn: 0.5, FadeOut: 0.3, Text: "Fear & Greed: 72"},
		{Kind: timeline.KindPriceRow, Start: 15, End: 45, FadeIn: 0.5, FadeOut: 0.3, Rows: rows},
		{Kind: timeline.KindTopicTitle, Start: 50, End: 56, FadeIn: 0.5, FadeOut: 0.3, Text: "SEC [update]"},
		{Kind: timeline.KindTopicTitle, Start: 100, End: 106, FadeIn: 0.5, FadeOut: 0.3, Text: "100% on-chain"},
		{Kind: timeline.KindTickerCycle, Start: 0, End: 300, Rows: rows},
	}
}

func TestBuild(t *testing.T) {
	src := Sources{BaseImage: "base.png", AudioPath: "voice.mp3", SubtitlePath: "subs.ass", Duration: 300}
	set, err := Build(sampleEvents(), src, DefaultStyle())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if set.BaseImage != "base.png" || set.AudioPath != "voice.mp3" || set.Duration != 300 {
		t.Errorf("sources not carried over: %+v", set)
	}
	if len(set.Filters) != len(set.Draws) {
		t.Fatalf("filters = %d, draws = %d", len(set.Filters), len(set.Draws))
	}

	// 1 sentiment + 2 per price row + 2 topics + ticker
	wantDraws := 1 + 2*3 + 2 + tickerCycles*3*4
	if len(set.Draws) != wantDraws {
		t.Errorf("got %d draws, want %d", len(set.Draws), wantDraws)
	}

	drawn := make(map[string]bool)
	for i, f := range set.Filters {
		name, opts, rest := parseFilter(t, f)
		if name != "drawtext" || rest != "" {
			t.Fatalf("filter %d parses as %q with rest %q", i, name, rest)
		}
		text, err := expandText(opts["text"])
		if err != nil {
			t.Fatalf("filter %d: %v", i, err)
		}
		if text != set.Draws[i].Text {
			t.Errorf("filter %d draws %q, want %q", i, text, set.Draws[i].Text)
		}
		if !strings.HasPrefix(opts["enable"], "gte(t,") {
			t.Errorf("filter %d gate = %q", i, opts["enable"])
		}
		drawn[text] = true
	}

	for _, want := range []string{"SEC [update]", "100% on-chain", "Fear & Greed: 72", "+2.10%", "-1.40%"} {
		if !drawn[want] {
			t.Errorf("no filter draws %q", want)
		}
	}
}

func TestBuildStaggersRows(t *testing.T) {
	set, err := Build(sampleEvents()[1:2], Sources{}, DefaultStyle())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var prev float64 = -1
	for i := 0; i < len(set.Draws); i += 2 {
		d := set.Draws[i]
		if d.Start <= prev {
			t.Errorf("row %d starts at %v, want after %v", i/2, d.Start, prev)
		}
		if d.End != 45 {
			t.Errorf("row %d ends at %v, want 45", i/2, d.End)
		}
		prev = d.Start
	}
}

func TestBuildFailsClosed(t *testing.T) {
	events := []timeline.Event{
		{Kind: timeline.KindTopicTitle, Start: 10, End: 16, Text: "bad\ntitle"},
	}

	_, err := Build(events, Sources{}, DefaultStyle())
	if !errors.Is(err, failure.ErrEscapingViolation) {
		t.Errorf("Build() error = %v, want ErrEscapingViolation", err)
	}
}

func TestBuildRejectsOverlap(t *testing.T) {
	events := []timeline.Event{
		{Kind: timeline.KindTopicTitle, Start: 10, End: 16, Text: "a"},
		{Kind: timeline.KindTopicTitle, Start: 15, End: 21, Text: "b"},
	}

	if _, err := Build(events, Sources{}, DefaultStyle()); err == nil {
		t.Error("expected error for overlapping topic titles")
	}
}

func TestDrawCommandFilter(t *testing.T) {
	d := DrawCommand{
		Text:     "BTC: $64,250",
		Color:    "white",
		X:        "(w-tw)/2",
		Y:        "100",
		FontSize: 48,
		Start:    1,
		End:      4,
		FadeIn:   0.5,
	}

	got, err := d.Filter("/fonts/Inter Bold.ttf")
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}

	_, opts, _ := parseFilter(t, got)
	want := map[string]string{
		"text":     `BTC\: $64,250`,
		"fontfile": "/fonts/Inter Bold.ttf",
		"fontsize": "48",
		"enable":   "gte(t,1.000)*lt(t,4.000)",
		"alpha":    "clip((t-1.000)/0.500,0,1)",
	}
	for k, v := range want {
		if opts[k] != v {
			t.Errorf("option %s = %q, want %q", k, opts[k], v)
		}
	}
	if _, ok := opts["box"]; ok {
		t.Error("box drawn without Box set")
	}
}

func TestDrawCommandGateIsHalfOpen(t *testing.T) {
	first := DrawCommand{Start: 10, End: 16}
	next := DrawCommand{Start: 16, End: 22}

	if got := first.gate(); got != "gte(t,10.000)*lt(t,16.000)" {
		t.Errorf("gate() = %q", got)
	}

	// at t=16 only the second overlay is enabled
	if gateAt(first, 16) || !gateAt(next, 16) {
		t.Error("back-to-back overlays both enabled on the shared boundary")
	}
	if !gateAt(first, 15.999) || gateAt(next, 15.999) {
		t.Error("gate wrong just before the boundary")
	}
}

// gateAt evaluates the gte(t,S)*lt(t,E) gate at t.
func gateAt(d DrawCommand, at float64) bool {
	var s, e float64
	if _, err := fmt.Sscanf(d.gate(), "gte(t,%f)*lt(t,%f)", &s, &e); err != nil {
		panic(err)
	}
	return at >= s && at < e
}

func TestDrawCommandAlpha(t *testing.T) {
	tests := []struct {
		name string
		d    DrawCommand
		want string
	}{
		{name: "none", d: DrawCommand{Start: 0, End: 5}, want: ""},
		{name: "fadeIn", d: DrawCommand{Start: 2, End: 5, FadeIn: 0.5}, want: "clip((t-2.000)/0.500,0,1)"},
		{name: "both", d: DrawCommand{Start: 2, End: 5, FadeIn: 0.5, FadeOut: 0.3}, want: "min(clip((t-2.000)/0.500,0,1),clip((5.000-t)/0.300,0,1))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.alpha(); got != tt.want {
				t.Errorf("alpha() = %q, want %q", got, tt.want)
			}
		})
	}
}
