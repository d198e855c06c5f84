package video

import (
	"fmt"
	"math"
	"strings"

	"newsreel/internal/captions"
)

// pauseThreshold is the smallest gap between words that gets its own
// karaoke pause.
const pauseThreshold = 0.1

type SubtitleGenerator struct {
	fontName       string
	fontSize       int
	primaryColor   string
	highlightColor string
	outlineColor   string
	outlineSize    int
	shadowSize     int
	bold           bool
	marginV        int
	width          int
	height         int
}

type SubtitleOptions struct {
	FontName       string
	FontSize       int
	PrimaryColor   string
	HighlightColor string
	OutlineColor   string
	OutlineSize    int
	ShadowSize     int
	Bold           bool
	MarginV        int
	Resolution     string
}

func NewSubtitleGenerator(opts SubtitleOptions) *SubtitleGenerator {
	primaryColor := "&H00FFFFFF" // white default
	if opts.PrimaryColor != "" {
		primaryColor = toASSColor(opts.PrimaryColor)
	}

	highlightColor := "&H0000D7FF" // gold default
	if opts.HighlightColor != "" {
		highlightColor = toASSColor(opts.HighlightColor)
	}

	outlineColor := "&H00000000" // black default
	if opts.OutlineColor != "" {
		outlineColor = toASSColor(opts.OutlineColor)
	}

	outlineSize := 4
	if opts.OutlineSize > 0 {
		outlineSize = opts.OutlineSize
	}

	shadowSize := 2
	if opts.ShadowSize >= 0 {
		shadowSize = opts.ShadowSize
	}

	fontName := opts.FontName
	if fontName == "" {
		fontName = "Arial"
	}
	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = 64
	}
	marginV := opts.MarginV
	if marginV <= 0 {
		marginV = 320
	}

	width, height := parseResolution(opts.Resolution)

	return &SubtitleGenerator{
		fontName:       fontName,
		fontSize:       fontSize,
		primaryColor:   primaryColor,
		highlightColor: highlightColor,
		outlineColor:   outlineColor,
		outlineSize:    outlineSize,
		shadowSize:     shadowSize,
		bold:           opts.Bold,
		marginV:        marginV,
		width:          width,
		height:         height,
	}
}

func toASSColor(color string) string {
	if strings.HasPrefix(color, "&H") {
		return color
	}
	color = strings.TrimPrefix(color, "#")
	if len(color) == 6 {
		r := color[0:2]
		g := color[2:4]
		b := color[4:6]
		return fmt.Sprintf("&H00%s%s%s", b, g, r)
	}
	return "&H00FFFFFF"
}

// ToASS renders caption lines as an ASS track with per-word karaoke timing.
// Words highlight from the secondary to the primary colour as they are spoken.
func (g *SubtitleGenerator) ToASS(lines []captions.Line) string {
	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	sb.WriteString("Title: Narration Captions\n")
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("WrapStyle: 0\n")
	fmt.Fprintf(&sb, "PlayResX: %d\n", g.width)
	fmt.Fprintf(&sb, "PlayResY: %d\n", g.height)
	sb.WriteString("\n")

	boldVal := 0
	if g.bold {
		boldVal = -1
	}

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&sb, "Style: Default,%s,%d,%s,%s,%s,&H80000000,%d,0,0,0,100,100,0,0,1,%d,%d,2,60,60,%d,1\n",
		g.fontName, g.fontSize, g.highlightColor, g.primaryColor, g.outlineColor, boldVal, g.outlineSize, g.shadowSize, g.marginV)
	sb.WriteString("\n")

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, line := range lines {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTime(line.Start), formatASSTime(line.End), karaoke(line))
	}

	return sb.String()
}

// karaoke builds the {\kN} payload for a line. N is in centiseconds. A pause
// token precedes a word when the silence before it exceeds pauseThreshold.
// Timing counts from line.Start, so a first word that began earlier gets a
// shorter token.
func karaoke(line captions.Line) string {
	var sb strings.Builder
	prevEnd := line.Start

	for i, w := range line.Words {
		if gap := w.Start - prevEnd; gap > pauseThreshold {
			fmt.Fprintf(&sb, "{\\k%d}", centis(gap))
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		start := w.Start
		if i == 0 {
			start = max(start, line.Start)
		}
		fmt.Fprintf(&sb, "{\\k%d}%s", centis(w.End-start), sanitizeASS(w.Display()))
		prevEnd = max(prevEnd, w.End)
	}

	return sb.String()
}

func centis(seconds float64) int {
	return max(0, int(math.Round(seconds*100)))
}

// sanitizeASS keeps word text from being read as override tags or field
// separators. Commas become U+201A, which renders like a comma.
func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\r\n", "\\N")
	s = strings.ReplaceAll(s, "\n", "\\N")
	s = strings.ReplaceAll(s, ",", "‚")
	return strings.TrimSpace(s)
}

func formatASSTime(seconds float64) string {
	total := centis(seconds)
	hours := total / 360000
	minutes := (total % 360000) / 6000
	secs := (total % 6000) / 100
	cs := total % 100

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, cs)
}
