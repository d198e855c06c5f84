package timeline

import (
	"testing"

	"newsreel/internal/app/model"
)

func sampleRequest() model.Request {
	return model.Request{
		Title:     "Daily market wrap",
		Sentiment: "Greed 72",
		Prices: []model.PriceSnapshot{
			{Symbol: "btc", Name: "Bitcoin", Price: 64250.5, Change24h: 2.1},
			{Symbol: "eth", Name: "Ethereum", Price: 3120, Change24h: -1.4},
		},
		Collectibles: []model.CollectibleSnapshot{
			{Name: "Pudgy Penguins", FloorPrice: 11.2, Currency: "eth", Change24h: 3},
		},
		Topics: []model.Topic{{Title: "Solana upgrade"}, {Title: "ETF flows"}},
	}
}

func TestEvents(t *testing.T) {
	req := sampleRequest()
	tl := Schedule(Input{
		Duration: 300,
		Script:   scriptWith(100, nil),
		Topics:   []string{req.Topics[0].Title, req.Topics[1].Title},
	})

	events := Events(tl, req)

	counts := make(map[Kind]int)
	for _, e := range events {
		counts[e.Kind]++
		if e.End <= e.Start {
			t.Errorf("%s event has empty window", e.Kind)
		}
		if e.Kind != KindTickerCycle && e.FadeIn != DefaultFadeIn {
			t.Errorf("%s fade-in = %v, want %v", e.Kind, e.FadeIn, DefaultFadeIn)
		}
	}

	want := map[Kind]int{
		KindSentiment:      1,
		KindPriceRow:       1,
		KindCollectibleRow: 1,
		KindTopicTitle:     2,
		KindTickerCycle:    1,
	}
	for kind, n := range want {
		if counts[kind] != n {
			t.Errorf("%s events = %d, want %d", kind, counts[kind], n)
		}
	}

	if err := ValidateNoOverlap(events); err != nil {
		t.Errorf("ValidateNoOverlap() = %v", err)
	}
}

func TestEventsSkipsEmptyChannels(t *testing.T) {
	tl := Schedule(Input{Duration: 120, Script: "nothing here"})
	events := Events(tl, model.Request{Script: "nothing here"})

	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestValidateNoOverlap(t *testing.T) {
	tests := []struct {
		name    string
		events  []Event
		wantErr bool
	}{
		{
			name: "touching",
			events: []Event{
				{Kind: KindTopicTitle, Start: 0, End: 5},
				{Kind: KindTopicTitle, Start: 5, End: 10},
			},
		},
		{
			name: "differentKinds",
			events: []Event{
				{Kind: KindTopicTitle, Start: 0, End: 5},
				{Kind: KindPriceRow, Start: 2, End: 8},
			},
		},
		{
			name: "overlapping",
			events: []Event{
				{Kind: KindTopicTitle, Start: 4, End: 9},
				{Kind: KindTopicTitle, Start: 0, End: 5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNoOverlap(tt.events)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNoOverlap() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		v      float64
		prefix string
		want   string
	}{
		{64250.5, "$", "$64,250.50"},
		{1234567.891, "$", "$1,234,567.89"},
		{3.5, "", "3.50"},
		{0.0345, "$", "$0.0345"},
		{0.00001234, "$", "$0.000012"},
		{-12.5, "$", "-$12.50"},
	}

	for _, tt := range tests {
		if got := FormatPrice(tt.v, tt.prefix); got != tt.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestPriceRows(t *testing.T) {
	rows := PriceRows(sampleRequest().Prices)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Label != "BTC" || rows[0].Value != "$64,250.50" || rows[0].Change != 2.1 {
		t.Errorf("row 0 = %+v", rows[0])
	}
}

func TestCollectibleRows(t *testing.T) {
	rows := CollectibleRows(sampleRequest().Collectibles)
	if len(rows) != 1 || rows[0].Value != "11.20 ETH" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestTerms(t *testing.T) {
	prices, collectibles := Terms(sampleRequest())
	if len(prices) != 4 {
		t.Errorf("price terms = %v, want symbols and names", prices)
	}
	if len(collectibles) != 1 || collectibles[0] != "Pudgy Penguins" {
		t.Errorf("collectible terms = %v", collectibles)
	}
}

func TestFormatChange(t *testing.T) {
	if got := FormatChange(2.1); got != "+2.10%" {
		t.Errorf("FormatChange(2.1) = %q", got)
	}
	if got := FormatChange(-1.456); got != "-1.46%" {
		t.Errorf("FormatChange(-1.456) = %q", got)
	}
}
