// Package timeline places price, collectible and topic overlays on the
// narration's audio timeline.
//
// Placement is a best-effort estimate from where keywords occur in the
// script. The collision guarantees are hard: topic windows never overlap each
// other and never leave the band between the price and collectible windows.
package timeline

import (
	"log/slog"
	"slices"
	"sort"
	"strings"
	"unicode"
)

const (
	maxIntro         = 15.0
	introRatio       = 0.10
	priceDuration    = 30.0
	priceCapRatio    = 0.30
	priceShiftRatio  = 0.10
	collectibleLead  = 45.0
	collectibleTail  = 15.0
	collectibleRatio = 0.70
	collectibleSpan  = 30.0

	DefaultTopicDisplay = 6.0
	TopicGap            = 1.0
	minTopicDisplay     = 1.0

	topicKeywords   = 3
	cooccurWindow   = 10
	minRedistribute = 1.0
)

var (
	genericPriceTerms       = []string{"price", "prices", "priced", "trading", "traded", "rallied", "rally", "surged", "slipped", "dropped"}
	genericCollectibleTerms = []string{"nft", "nfts", "collectible", "collectibles", "floor"}

	stopwords = map[string]bool{
		"the": true, "and": true, "for": true, "with": true, "from": true, "into": true,
		"over": true, "after": true, "amid": true, "its": true, "are": true, "was": true,
		"has": true, "have": true, "new": true, "this": true, "that": true, "what": true,
		"why": true, "how": true, "says": true, "will": true, "can": true, "but": true,
	}
)

type Window struct {
	Start float64
	End   float64
}

func (w Window) Duration() float64 { return w.End - w.Start }

// TopicWindow is where a topic's title banner is shown. Index is the topic's
// position in the request.
type TopicWindow struct {
	Index   int
	Title   string
	Ideal   float64
	Matched bool
	Window
}

type Timeline struct {
	IntroEnd      float64
	Price         Window
	Topics        []TopicWindow
	Collectible   Window
	TotalDuration float64
}

type Input struct {
	Duration         float64
	Script           string
	Topics           []string
	PriceTerms       []string
	CollectibleTerms []string
	TopicDisplay     float64
}

// Schedule computes the overlay windows for in.
func Schedule(in Input) Timeline {
	d := max(in.Duration, 0)
	words := normalizeWords(in.Script)

	tl := Timeline{TotalDuration: d}
	tl.IntroEnd = min(maxIntro, introRatio*d)
	tl.Price = priceWindow(d, tl.IntroEnd, words, in.PriceTerms)
	tl.Collectible = collectibleWindow(d, tl.Price.End, words, in.CollectibleTerms)
	tl.Topics = scheduleTopics(in, words, topicBand(tl))

	return tl
}

func priceWindow(d, introEnd float64, words []string, terms []string) Window {
	start := introEnd
	if ratio, ok := firstRatio(words, slices.Concat(genericPriceTerms, terms), 0); ok && ratio > priceShiftRatio {
		start = max(introEnd, ratio*d)
	}

	end := min(start+priceDuration, priceCapRatio*d)
	if end <= start {
		end = min(start+priceDuration, d)
	}
	return Window{Start: start, End: end}
}

func collectibleWindow(d, priceEnd float64, words []string, terms []string) Window {
	start := d - collectibleLead
	end := d - collectibleTail

	from := int(collectibleRatio * float64(len(words)))
	if ratio, ok := firstRatio(words, slices.Concat(genericCollectibleTerms, terms), from); ok && ratio >= collectibleRatio {
		start = ratio * d
		end = min(start+collectibleSpan, d)
	}

	start = max(start, priceEnd)
	if end <= start {
		end = min(start+collectibleSpan, d)
	}
	return Window{Start: start, End: end}
}

// topicBand is the main-news band between the price and collectible windows.
// Degenerate bands on very short videos widen to the rest of the video.
func topicBand(tl Timeline) Window {
	band := Window{Start: tl.Price.End, End: tl.Collectible.Start}
	if band.Duration() <= 0 {
		band = Window{Start: tl.Price.End, End: tl.TotalDuration}
	}
	if band.Duration() <= 0 {
		band = Window{Start: 0, End: tl.TotalDuration}
	}
	return band
}

func scheduleTopics(in Input, words []string, band Window) []TopicWindow {
	n := len(in.Topics)
	if n == 0 || band.Duration() <= 0 {
		return nil
	}

	display := in.TopicDisplay
	if display <= 0 {
		display = DefaultTopicDisplay
	}
	dur, gap := slotFit(band.Duration()/float64(n), display)

	topics := make([]TopicWindow, n)
	matched := 0
	for i, title := range in.Topics {
		topics[i] = TopicWindow{Index: i, Title: title}

		idx := locateTopic(words, titleKeywords(title))
		if idx >= 0 {
			topics[i].Matched = true
			topics[i].Ideal = float64(idx) / float64(len(words)) * in.Duration
			matched++
		} else {
			topics[i].Ideal = band.Start + float64(i)/float64(n)*band.Duration()
		}
		topics[i].Ideal = clamp(topics[i].Ideal, band.Start, max(band.Start, band.End-dur))
	}
	if matched == 0 {
		slog.Debug("No topic matched the script, distributing evenly", "topics", n)
	}

	sort.SliceStable(topics, func(i, j int) bool { return topics[i].Ideal < topics[j].Ideal })
	pack(topics, band, dur, gap)
	return topics
}

// slotFit returns the display duration and gap for topics given the slot each
// would get under an even split. The gap is TopicGap whenever the slot leaves
// room for it after minTopicDisplay.
func slotFit(slot, display float64) (float64, float64) {
	dur := min(display, slot-TopicGap)
	if dur < minTopicDisplay {
		dur = min(minTopicDisplay, slot/2)
	}
	return dur, min(TopicGap, slot-dur)
}

func pack(topics []TopicWindow, band Window, dur, gap float64) {
	prevEnd := band.Start - gap
	for i := range topics {
		start := max(topics[i].Ideal, prevEnd+gap)
		if start+dur > band.End+1e-9 {
			redistribute(topics, i, prevEnd+gap, band, dur)
			return
		}
		topics[i].Window = Window{Start: start, End: start + dur}
		prevEnd = topics[i].End
	}
}

// redistribute spreads topics[from:] evenly after the last placed topic. When
// too little time is left, every topic is spread across the whole band.
func redistribute(topics []TopicWindow, from int, after float64, band Window, dur float64) {
	remaining := topics[from:]
	slot := (band.End - after) / float64(len(remaining))
	slog.Debug("Topics do not fit, redistributing", "remaining", len(remaining), "slot", slot)

	if slot < minRedistribute {
		spread(topics, band.Start, band.Duration(), dur)
		return
	}
	spread(remaining, after, band.End-after, dur)
}

func spread(topics []TopicWindow, from, span, display float64) {
	slot := span / float64(len(topics))
	d, _ := slotFit(slot, display)
	for i := range topics {
		start := from + float64(i)*slot
		topics[i].Window = Window{Start: start, End: start + d}
	}
}

func titleKeywords(title string) []string {
	var keywords []string
	for _, w := range normalizeWords(title) {
		if len(w) <= 2 || stopwords[w] {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == topicKeywords {
			break
		}
	}
	return keywords
}

// locateTopic returns the first word index where at least two keywords occur
// within cooccurWindow words, else the first single keyword hit, else -1.
func locateTopic(words, keywords []string) int {
	if len(keywords) == 0 {
		return -1
	}
	set := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		set[k] = true
	}

	single := -1
	for i, w := range words {
		if !set[w] {
			continue
		}
		if single < 0 {
			single = i
		}
		seen := map[string]bool{w: true}
		for j := i + 1; j < min(i+cooccurWindow, len(words)); j++ {
			if set[words[j]] {
				seen[words[j]] = true
			}
		}
		if len(seen) >= 2 {
			return i
		}
	}
	return single
}

// firstRatio returns the relative position of the first term occurrence at or
// after word index from.
func firstRatio(words []string, terms []string, from int) (float64, bool) {
	if len(words) == 0 {
		return 0, false
	}
	phrases := make([][]string, 0, len(terms))
	for _, t := range terms {
		if p := normalizeWords(t); len(p) > 0 {
			phrases = append(phrases, p)
		}
	}

	for i := max(from, 0); i < len(words); i++ {
		for _, p := range phrases {
			if hasPhraseAt(words, i, p) {
				return float64(i) / float64(len(words)), true
			}
		}
	}
	return 0, false
}

func hasPhraseAt(words []string, i int, phrase []string) bool {
	if i+len(phrase) > len(words) {
		return false
	}
	for k, p := range phrase {
		if words[i+k] != p {
			return false
		}
	}
	return true
}

func normalizeWords(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, f)
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
