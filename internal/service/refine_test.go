package service

import (
	"reflect"
	"testing"

	"github.com/razchen/youtube-ingest/internal/vision"
)

func analysisFixture() *vision.Analysis {
	return &vision.Analysis{
		ImageSize: vision.ImageSize{Width: 1280, Height: 720},
	}
}

func TestRefineVisionVehicle(t *testing.T) {
	tests := []struct {
		name      string
		detection vision.Detection
		want      bool
	}{
		{"confident car", vision.Detection{Name: "car", Conf: 0.9, Box: vision.Box{W: 400, H: 300}}, true},
		{"confident truck", vision.Detection{Name: "truck", Conf: 0.6, Box: vision.Box{W: 400, H: 300}}, true},
		{"low confidence", vision.Detection{Name: "car", Conf: 0.3, Box: vision.Box{W: 400, H: 300}}, false},
		{"tiny box", vision.Detection{Name: "car", Conf: 0.9, Box: vision.Box{W: 10, H: 10}}, false},
		{"not a vehicle", vision.Detection{Name: "dog", Conf: 0.9, Box: vision.Box{W: 400, H: 300}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analysisFixture()
			a.Objects.Raw = []vision.Detection{tt.detection}
			got := RefineVision(a, "", "")
			if has := containsTag(got.Tags, "vehicle"); has != tt.want {
				t.Errorf("vehicle tag = %v, want %v (tags %v)", has, tt.want, got.Tags)
			}
		})
	}
}

func TestRefineVisionPortrait(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		areaPct float64
		want    bool
	}{
		{"large face", 1, 0.12, true},
		{"at threshold", 1, 0.08, true},
		{"small face", 1, 0.03, false},
		{"no faces", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analysisFixture()
			a.Faces.Count = tt.count
			if tt.count > 0 {
				a.Faces.Largest = &vision.FaceBox{AreaPct: tt.areaPct}
			}
			got := RefineVision(a, "", "")
			if has := containsTag(got.Tags, "portrait"); has != tt.want {
				t.Errorf("portrait tag = %v, want %v", has, tt.want)
			}
			if got.FaceCount != tt.count {
				t.Errorf("FaceCount = %d, want %d", got.FaceCount, tt.count)
			}
		})
	}
}

func TestRefineVisionMoney(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		ocrText string
		want    bool
	}{
		{"currency symbol in title", "I Spent $100,000", "", true},
		{"euro in ocr", "", "500€ GIVEAWAY", true},
		{"keyword in title", "How I Got RICH", "", true},
		{"keyword in ocr", "", "CRYPTO CRASH", true},
		{"no signal", "Minecraft speedrun", "WORLD RECORD", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RefineVision(analysisFixture(), tt.title, tt.ocrText)
			if has := containsTag(got.Tags, "money"); has != tt.want {
				t.Errorf("money tag = %v, want %v", has, tt.want)
			}
		})
	}
}

func TestRefineVisionFire(t *testing.T) {
	warm := vision.PaletteColor{Hex: "#e63b1f", Pct: 0.3}
	cool := vision.PaletteColor{Hex: "#1f3be6", Pct: 0.5}

	tests := []struct {
		name     string
		palette  []vision.PaletteColor
		contrast float64
		want     bool
	}{
		{"warm and contrasty", []vision.PaletteColor{warm}, 0.4, true},
		{"warm but flat", []vision.PaletteColor{warm}, 0.1, false},
		{"cool palette", []vision.PaletteColor{cool}, 0.4, false},
		{"warm below prevalence", []vision.PaletteColor{{Hex: "#e63b1f", Pct: 0.05}}, 0.4, false},
		{"bad hex ignored", []vision.PaletteColor{{Hex: "red", Pct: 0.5}}, 0.4, false},
		{"dominant warm over cool", []vision.PaletteColor{warm, {Hex: "#1f3be6", Pct: 0.2}}, 0.4, true},
		{"dominant cool, warm secondary", []vision.PaletteColor{cool, {Hex: "#e63b1f", Pct: 0.2}}, 0.4, false},
		{"dominant cool listed last", []vision.PaletteColor{{Hex: "#e63b1f", Pct: 0.2}, cool}, 0.4, false},
		{"empty palette", nil, 0.4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analysisFixture()
			a.Palette = tt.palette
			a.Contrast = tt.contrast
			got := RefineVision(a, "", "")
			if has := containsTag(got.Tags, "fire"); has != tt.want {
				t.Errorf("fire tag = %v, want %v", has, tt.want)
			}
		})
	}
}

func TestRefineVisionDeterministic(t *testing.T) {
	a := analysisFixture()
	a.Faces.Count = 2
	a.Faces.Largest = &vision.FaceBox{AreaPct: 0.15}
	a.Objects.Raw = []vision.Detection{
		{Name: "person", Conf: 0.9, Box: vision.Box{W: 300, H: 500}},
		{Name: "car", Conf: 0.8, Box: vision.Box{W: 600, H: 300}},
	}
	a.Palette = []vision.PaletteColor{{Hex: "#ff4500", Pct: 0.25}}
	a.Contrast = 0.3

	first := RefineVision(a, "$1M Challenge", "")
	for i := 0; i < 5; i++ {
		again := RefineVision(a, "$1M Challenge", "")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("refinement not deterministic: %v vs %v", first, again)
		}
	}

	want := []string{"vehicle", "person", "portrait", "money", "fire"}
	if !reflect.DeepEqual(first.Tags, want) {
		t.Errorf("Tags = %v, want %v", first.Tags, want)
	}
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
