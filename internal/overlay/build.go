package overlay

import (
	"fmt"

	"newsreel/internal/timeline"
)

const rowStagger = 0.15

// Style controls where and how overlays are drawn on a Width x Height frame.
type Style struct {
	Width          int
	Height         int
	FontFile       string
	FontSize       int
	TitleFontSize  int
	TickerFontSize int
	TickerSpeed    float64
	TextColor      string
	BoxColor       string
	Palette        Palette
}

func DefaultStyle() Style {
	return Style{
		Width:          1080,
		Height:         1920,
		FontSize:       44,
		TitleFontSize:  60,
		TickerFontSize: 36,
		TickerSpeed:    120,
		TextColor:      "white",
		BoxColor:       "black@0.55",
		Palette: Palette{
			Neutral: "white",
			Up:      "0x16C784",
			Down:    "0xEA3943",
		},
	}
}

// InstructionSet is everything the compositor needs for one video. Filters
// holds the rendered drawtext chain in draw order.
type InstructionSet struct {
	BaseImage    string
	AudioPath    string
	SubtitlePath string
	MusicPath    string
	Duration     float64
	Draws        []DrawCommand
	Filters      []string
}

type Sources struct {
	BaseImage    string
	AudioPath    string
	SubtitlePath string
	MusicPath    string
	Duration     float64
}

// Build lays out every event and renders the draw chain. It fails if two
// events on one channel overlap or any text cannot be escaped.
func Build(events []timeline.Event, src Sources, style Style) (InstructionSet, error) {
	if err := timeline.ValidateNoOverlap(events); err != nil {
		return InstructionSet{}, err
	}

	set := InstructionSet{
		BaseImage:    src.BaseImage,
		AudioPath:    src.AudioPath,
		SubtitlePath: src.SubtitlePath,
		MusicPath:    src.MusicPath,
		Duration:     src.Duration,
	}

	for _, e := range events {
		set.Draws = append(set.Draws, style.draws(e)...)
	}

	set.Filters = make([]string, 0, len(set.Draws))
	for i, d := range set.Draws {
		f, err := d.Filter(style.FontFile)
		if err != nil {
			return InstructionSet{}, fmt.Errorf("draw %d (%q): %w", i, d.Text, err)
		}
		set.Filters = append(set.Filters, f)
	}

	return set, nil
}

func (s Style) draws(e timeline.Event) []DrawCommand {
	switch e.Kind {
	case timeline.KindSentiment:
		return []DrawCommand{s.banner(e, "h*0.12")}
	case timeline.KindTopicTitle:
		return []DrawCommand{s.banner(e, "h*0.18")}
	case timeline.KindPriceRow, timeline.KindCollectibleRow:
		return s.rows(e)
	case timeline.KindTickerCycle:
		items := TickerItems(e.Rows, s.TickerFontSize, s.Palette)
		layout := Layout(items, s.TickerFontSize).Fill(float64(s.Width))
		return layout.Draws("h-th-60", s.TickerSpeed, e.Start, e.End, s.Palette)
	}
	return nil
}

func (s Style) banner(e timeline.Event, y string) DrawCommand {
	return DrawCommand{
		Text:     e.Text,
		Color:    s.TextColor,
		X:        "(w-tw)/2",
		Y:        y,
		FontSize: s.TitleFontSize,
		Start:    e.Start,
		End:      e.End,
		FadeIn:   e.FadeIn,
		FadeOut:  e.FadeOut,
		Box:      true,
		BoxColor: s.BoxColor,
	}
}

// rows stacks one line per row; each line fades in rowStagger after the one
// above it.
func (s Style) rows(e timeline.Event) []DrawCommand {
	lineHeight := float64(s.FontSize) * 1.5
	top := float64(s.Height) * 0.3
	left := float64(s.Width) * 0.08
	changeX := float64(s.Width) * 0.68

	var draws []DrawCommand
	for i, row := range e.Rows {
		start := min(e.Start+float64(i)*rowStagger, e.End-e.FadeIn)
		start = max(start, e.Start)
		y := fmt.Sprintf("%.1f", top+float64(i)*lineHeight)

		changeColor := s.Palette.Up
		if row.Change < 0 {
			changeColor = s.Palette.Down
		}

		label := DrawCommand{
			Text:     row.Label + "  " + row.Value,
			Color:    s.Palette.Neutral,
			X:        fmt.Sprintf("%.1f", left),
			Y:        y,
			FontSize: s.FontSize,
			Start:    start,
			End:      e.End,
			FadeIn:   e.FadeIn,
			FadeOut:  e.FadeOut,
			Box:      true,
			BoxColor: s.BoxColor,
		}
		change := label
		change.Text = timeline.FormatChange(row.Change)
		change.Color = changeColor
		change.X = fmt.Sprintf("%.1f", changeX)

		draws = append(draws, label, change)
	}
	return draws
}
