package overlay

import (
	"fmt"
	"strconv"
)

// DrawCommand is one time-gated text draw.
type DrawCommand struct {
	Text     string
	Color    string
	X        string
	Y        string
	FontSize int
	Start    float64
	End      float64
	FadeIn   float64
	FadeOut  float64
	Box      bool
	BoxColor string
}

// Filter renders the command as a drawtext filter. The text is escaped;
// anything Escape rejects is returned as an error.
func (d DrawCommand) Filter(fontFile string) (string, error) {
	text, err := Escape(d.Text)
	if err != nil {
		return "", err
	}

	opts := [][2]string{{"text", text}}
	if fontFile != "" {
		opts = append(opts, [2]string{"fontfile", fontFile})
	}
	opts = append(opts,
		[2]string{"fontcolor", d.Color},
		[2]string{"fontsize", strconv.Itoa(d.FontSize)},
		[2]string{"x", d.X},
		[2]string{"y", d.Y},
	)
	if d.Box {
		opts = append(opts,
			[2]string{"box", "1"},
			[2]string{"boxcolor", d.BoxColor},
			[2]string{"boxborderw", "16"},
		)
	}
	opts = append(opts, [2]string{"enable", d.gate()})
	if alpha := d.alpha(); alpha != "" {
		opts = append(opts, [2]string{"alpha", alpha})
	}

	return "drawtext=" + filterArgs(opts), nil
}

// gate is true on [Start,End).
func (d DrawCommand) gate() string {
	return fmt.Sprintf("gte(t,%.3f)*lt(t,%.3f)", d.Start, d.End)
}

// alpha is a linear fade-in ramp from Start, optionally combined with a
// fade-out ramp ending at End.
func (d DrawCommand) alpha() string {
	var ramps []string
	if d.FadeIn > 0 {
		ramps = append(ramps, fmt.Sprintf("clip((t-%.3f)/%.3f,0,1)", d.Start, d.FadeIn))
	}
	if d.FadeOut > 0 {
		ramps = append(ramps, fmt.Sprintf("clip((%.3f-t)/%.3f,0,1)", d.End, d.FadeOut))
	}
	switch len(ramps) {
	case 0:
		return ""
	case 1:
		return ramps[0]
	}
	return fmt.Sprintf("min(%s,%s)", ramps[0], ramps[1])
}
