package service

import (
	"math"
	"testing"
	"time"

	"github.com/razchen/youtube-ingest/internal/model"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"seconds only", "PT45S", 45},
		{"minutes and seconds", "PT4M13S", 253},
		{"hours minutes seconds", "PT1H2M3S", 3723},
		{"days and hours", "P1DT4H", 100800},
		{"zero", "PT0S", 0},
		{"empty", "", 0},
		{"missing P prefix", "T1M", 0},
		{"garbage", "1H30M", 0},
		{"unit without number", "PTS", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseISODuration(tt.input); got != tt.want {
				t.Errorf("ParseISODuration(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestEngagement(t *testing.T) {
	tests := []struct {
		name        string
		views, subs int64
		want        *float64
	}{
		{"zero subscribers", 1000, 0, nil},
		{"negative subscribers", 1000, -5, nil},
		{"negative views", -1, 100, nil},
		{"zero views", 0, 100, ptrFloat(0)},
		{"views equal subs", 999, 999, ptrFloat(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Engagement(tt.views, tt.subs)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Engagement(%d, %d) = %v, want %v", tt.views, tt.subs, got, tt.want)
			}
			if got != nil && math.Abs(*got-*tt.want) > 1e-9 {
				t.Errorf("Engagement(%d, %d) = %f, want %f", tt.views, tt.subs, *got, *tt.want)
			}
		})
	}
}

func TestEngagementMonotonic(t *testing.T) {
	lo := Engagement(1000, 10000)
	hi := Engagement(1000000, 10000)
	if lo == nil || hi == nil {
		t.Fatal("expected non-nil scores")
	}
	if *hi <= *lo {
		t.Errorf("more views should score higher: %f <= %f", *hi, *lo)
	}
}

func TestHas720Plus(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          bool
	}{
		{"maxres", 1280, 720, true},
		{"wide only", 1280, 600, true},
		{"tall only", 900, 720, true},
		{"hqdefault", 480, 360, false},
		{"zero", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Has720Plus(tt.width, tt.height); got != tt.want {
				t.Errorf("Has720Plus(%d, %d) = %v, want %v", tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func TestKidsStatus(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name         string
		madeForKids  *bool
		selfDeclared *bool
		want         model.Tristate
	}{
		{"authoritative true", &yes, &no, model.TriTrue},
		{"authoritative false", &no, &yes, model.TriFalse},
		{"self-declared fallback", nil, &yes, model.TriTrue},
		{"both absent", nil, nil, model.TriUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KidsStatus(tt.madeForKids, tt.selfDeclared); got != tt.want {
				t.Errorf("KidsStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectiveLowerBound(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	override := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	watermark := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	overlap := 5 * time.Minute
	lookback := 90 * 24 * time.Hour

	tests := []struct {
		name      string
		override  *time.Time
		watermark *time.Time
		want      time.Time
	}{
		{"override wins", &override, &watermark, override},
		{"watermark minus overlap", nil, &watermark, watermark.Add(-overlap)},
		{"default lookback", nil, nil, now.Add(-lookback)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveLowerBound(tt.override, tt.watermark, now, overlap, lookback)
			if !got.Equal(tt.want) {
				t.Errorf("EffectiveLowerBound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func ptrFloat(f float64) *float64 { return &f }
