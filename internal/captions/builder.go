// Package captions groups timed words into caption lines and caps how many
// lines are on screen at once.
package captions

import (
	"sort"
	"strings"

	"newsreel/internal/speech"
)

const (
	MaxWordsPerLine = 8
	MaxConcurrent   = 3

	// StartGap separates consecutive line starts so fades do not collide.
	StartGap = 0.1
	// ShortenLead is how far before the incoming line an evicted line ends.
	ShortenLead = 0.15

	minLineDuration = 0.05
)

// Line is a finalized caption line.
type Line struct {
	Start float64
	End   float64
	Text  string
	Words []speech.TimedWord
}

type draft struct {
	start float64
	end   float64
	words []speech.TimedWord
}

func (d *draft) finalize() Line {
	texts := make([]string, len(d.words))
	for i, w := range d.words {
		texts[i] = w.Display()
	}
	return Line{
		Start: d.start,
		End:   d.end,
		Text:  strings.Join(texts, " "),
		Words: d.words,
	}
}

// Build groups words into lines. A line closes after MaxWordsPerLine words or
// on a word ending a sentence. Starting a line while MaxConcurrent lines are
// still showing ends the earliest of them ShortenLead before the new start.
func Build(words []speech.TimedWord) []Line {
	var drafts []*draft
	var pending []speech.TimedWord

	closeLine := func() {
		if len(pending) == 0 {
			return
		}
		d := &draft{
			start: pending[0].Start,
			end:   pending[len(pending)-1].End,
			words: pending,
		}
		if n := len(drafts); n > 0 {
			d.start = max(d.start, drafts[n-1].start+StartGap)
		}
		d.end = max(d.end, d.start+minLineDuration)

		enforceCap(drafts, d.start)
		drafts = append(drafts, d)
		pending = nil
	}

	for _, w := range words {
		pending = append(pending, w)
		if len(pending) >= MaxWordsPerLine || endsSentence(w.Display()) {
			closeLine()
		}
	}
	closeLine()

	lines := make([]Line, len(drafts))
	for i, d := range drafts {
		lines[i] = d.finalize()
	}
	return lines
}

// enforceCap shortens active drafts until activating a line at start keeps
// the number of visible lines within MaxConcurrent.
func enforceCap(drafts []*draft, start float64) {
	for {
		var active []*draft
		for _, d := range drafts {
			if d.end > start {
				active = append(active, d)
			}
		}
		if len(active) < MaxConcurrent {
			return
		}

		earliest := active[0]
		for _, d := range active[1:] {
			if d.start < earliest.start {
				earliest = d
			}
		}
		// starts are StartGap apart, so earliest.start <= start-3*StartGap
		earliest.end = max(earliest.start, start-ShortenLead)
	}
}

func endsSentence(text string) bool {
	text = strings.TrimRight(text, `"')]`)
	return strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?")
}

// Concurrent returns the largest number of lines visible at one instant.
func Concurrent(lines []Line) int {
	type edge struct {
		t     float64
		delta int
	}
	edges := make([]edge, 0, 2*len(lines))
	for _, l := range lines {
		if l.End <= l.Start {
			continue
		}
		edges = append(edges, edge{l.Start, 1}, edge{l.End, -1})
	}
	// ends sort before starts at the same instant: intervals are half-open
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].t != edges[j].t {
			return edges[i].t < edges[j].t
		}
		return edges[i].delta < edges[j].delta
	})

	current, peak := 0, 0
	for _, e := range edges {
		current += e.delta
		peak = max(peak, current)
	}
	return peak
}
