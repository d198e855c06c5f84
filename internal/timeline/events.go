package timeline

import (
	"fmt"
	"sort"
	"strings"

	"newsreel/internal/app/model"
)

type Kind string

const (
	KindSentiment      Kind = "sentiment"
	KindPriceRow       Kind = "price_row"
	KindCollectibleRow Kind = "collectible_row"
	KindTopicTitle     Kind = "topic_title"
	KindTickerCycle    Kind = "ticker_cycle"
)

const (
	DefaultFadeIn  = 0.5
	DefaultFadeOut = 0.3
)

// Row is one line of a price or collectible table.
type Row struct {
	Label  string
	Value  string
	Change float64
}

// Event is one overlay on a visual channel. Events of the same Kind never
// overlap.
type Event struct {
	Kind    Kind
	Start   float64
	End     float64
	FadeIn  float64
	FadeOut float64
	Text    string
	Rows    []Row
}

// Events turns a timeline into overlay events for req. Channels without data
// produce no events.
func Events(tl Timeline, req model.Request) []Event {
	var events []Event

	if s := strings.TrimSpace(req.Sentiment); s != "" && tl.IntroEnd > 0 {
		events = append(events, newEvent(KindSentiment, Window{End: tl.IntroEnd}, s, nil))
	}

	priceRows := PriceRows(req.Prices)
	if len(priceRows) > 0 && tl.Price.Duration() > 0 {
		events = append(events, newEvent(KindPriceRow, tl.Price, "", priceRows))
	}

	if rows := CollectibleRows(req.Collectibles); len(rows) > 0 && tl.Collectible.Duration() > 0 {
		events = append(events, newEvent(KindCollectibleRow, tl.Collectible, "", rows))
	}

	for _, topic := range tl.Topics {
		if topic.Duration() <= 0 {
			continue
		}
		events = append(events, newEvent(KindTopicTitle, topic.Window, topic.Title, nil))
	}

	if len(priceRows) > 0 && tl.TotalDuration > 0 {
		ticker := newEvent(KindTickerCycle, Window{End: tl.TotalDuration}, "", priceRows)
		ticker.FadeIn, ticker.FadeOut = 0, 0
		events = append(events, ticker)
	}

	return events
}

func newEvent(kind Kind, w Window, text string, rows []Row) Event {
	return Event{
		Kind:    kind,
		Start:   w.Start,
		End:     w.End,
		FadeIn:  min(DefaultFadeIn, w.Duration()/2),
		FadeOut: min(DefaultFadeOut, w.Duration()/2),
		Text:    text,
		Rows:    rows,
	}
}

func PriceRows(prices []model.PriceSnapshot) []Row {
	rows := make([]Row, 0, len(prices))
	for _, p := range prices {
		label := strings.ToUpper(strings.TrimSpace(p.Symbol))
		if label == "" {
			label = strings.TrimSpace(p.Name)
		}
		if label == "" {
			continue
		}
		rows = append(rows, Row{Label: label, Value: FormatPrice(p.Price, "$"), Change: p.Change24h})
	}
	return rows
}

func CollectibleRows(items []model.CollectibleSnapshot) []Row {
	rows := make([]Row, 0, len(items))
	for _, c := range items {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		value := FormatPrice(c.FloorPrice, "")
		if c.Currency != "" {
			value += " " + strings.ToUpper(c.Currency)
		}
		rows = append(rows, Row{Label: name, Value: value, Change: c.Change24h})
	}
	return rows
}

// FormatPrice renders v with thousands separators and precision suited to
// its magnitude.
func FormatPrice(v float64, prefix string) string {
	neg := v < 0
	if neg {
		v = -v
	}

	var s string
	switch {
	case v >= 1:
		s = fmt.Sprintf("%.2f", v)
	case v >= 0.01:
		s = fmt.Sprintf("%.4f", v)
	default:
		s = fmt.Sprintf("%.6f", v)
	}

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := prefix + b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// FormatChange renders a 24h change as a signed percentage.
func FormatChange(change float64) string {
	return fmt.Sprintf("%+.2f%%", change)
}

// ValidateNoOverlap reports the first pair of same-kind events that overlap.
func ValidateNoOverlap(events []Event) error {
	byKind := make(map[Kind][]Event)
	for _, e := range events {
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}

	for kind, list := range byKind {
		sort.Slice(list, func(i, j int) bool { return list[i].Start < list[j].Start })
		for i := 1; i < len(list); i++ {
			if list[i].Start < list[i-1].End {
				return fmt.Errorf("%s events overlap: [%.2f,%.2f) and [%.2f,%.2f)",
					kind, list[i-1].Start, list[i-1].End, list[i].Start, list[i].End)
			}
		}
	}
	return nil
}

// Terms returns the keywords that locate prices and collectibles in a script
// for req.
func Terms(req model.Request) (prices, collectibles []string) {
	for _, p := range req.Prices {
		prices = appendNonEmpty(prices, p.Symbol, p.Name)
	}
	for _, c := range req.Collectibles {
		collectibles = appendNonEmpty(collectibles, c.Name)
	}
	return prices, collectibles
}

func appendNonEmpty(dst []string, values ...string) []string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			dst = append(dst, v)
		}
	}
	return dst
}
