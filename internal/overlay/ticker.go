package overlay

import (
	"fmt"
	"math"
	"unicode/utf8"

	"newsreel/internal/timeline"
)

const (
	// charWidthRatio approximates an average glyph width as a fraction of the
	// font size.
	charWidthRatio = 0.6
	tickerCycles   = 3
	separator      = "   •   "
)

type Segment struct {
	Text   string
	Color  string
	Offset float64
	Width  float64
}

type TickerItem struct {
	Segments []Segment
	Width    float64
}

// TickerLayout places items left to right. Offsets[i] is where item i starts
// within one cycle; a separator follows every item.
type TickerLayout struct {
	Items          []TickerItem
	Offsets        []float64
	SeparatorWidth float64
	CycleWidth     float64
	FontSize       int
}

type Palette struct {
	Neutral string
	Up      string
	Down    string
}

func TextWidth(text string, fontSize int) float64 {
	return float64(utf8.RuneCountInString(text)) * float64(fontSize) * charWidthRatio
}

// TickerItems splits each row into a neutral label/price segment and a change
// segment coloured by sign.
func TickerItems(rows []timeline.Row, fontSize int, p Palette) []TickerItem {
	items := make([]TickerItem, 0, len(rows))
	for _, row := range rows {
		changeColor := p.Up
		if row.Change < 0 {
			changeColor = p.Down
		}

		var item TickerItem
		for _, seg := range []Segment{
			{Text: row.Label + " ", Color: p.Neutral},
			{Text: row.Value + " ", Color: p.Neutral},
			{Text: timeline.FormatChange(row.Change), Color: changeColor},
		} {
			seg.Offset = item.Width
			seg.Width = TextWidth(seg.Text, fontSize)
			item.Width += seg.Width
			item.Segments = append(item.Segments, seg)
		}
		items = append(items, item)
	}
	return items
}

func Layout(items []TickerItem, fontSize int) TickerLayout {
	l := TickerLayout{
		Items:          items,
		Offsets:        make([]float64, len(items)),
		SeparatorWidth: TextWidth(separator, fontSize),
		FontSize:       fontSize,
	}
	for i, item := range items {
		l.Offsets[i] = l.CycleWidth
		l.CycleWidth += item.Width + l.SeparatorWidth
	}
	return l
}

// Fill repeats the item sequence until two cycles span frameWidth. Three
// cycles scrolled by up to one cycle width then still cover the frame.
func (l TickerLayout) Fill(frameWidth float64) TickerLayout {
	if l.CycleWidth <= 0 || 2*l.CycleWidth >= frameWidth {
		return l
	}
	reps := int(math.Ceil(frameWidth / (2 * l.CycleWidth)))
	items := make([]TickerItem, 0, reps*len(l.Items))
	for range reps {
		items = append(items, l.Items...)
	}
	return Layout(items, l.FontSize)
}

// Draws emits tickerCycles back-to-back copies of the cycle scrolling left at
// speed px/s. Positions wrap every CycleWidth so the band loops seamlessly.
func (l TickerLayout) Draws(y string, speed float64, start, end float64, p Palette) []DrawCommand {
	if l.CycleWidth <= 0 || len(l.Items) == 0 {
		return nil
	}

	var draws []DrawCommand
	for c := 0; c < tickerCycles; c++ {
		base := float64(c) * l.CycleWidth
		for i, item := range l.Items {
			for _, seg := range item.Segments {
				draws = append(draws, l.draw(seg.Text, seg.Color, base+l.Offsets[i]+seg.Offset, y, speed, start, end))
			}
			sepX := base + l.Offsets[i] + item.Width
			draws = append(draws, l.draw(separator, p.Neutral, sepX, y, speed, start, end))
		}
	}
	return draws
}

func (l TickerLayout) draw(text, color string, x float64, y string, speed, start, end float64) DrawCommand {
	return DrawCommand{
		Text:     text,
		Color:    color,
		X:        fmt.Sprintf("%.1f-mod(t*%.1f,%.1f)", x, speed, l.CycleWidth),
		Y:        y,
		FontSize: l.FontSize,
		Start:    start,
		End:      end,
	}
}
