package service

import (
	"strconv"
	"strings"

	"github.com/razchen/youtube-ingest/internal/vision"
)

// Tag refinement thresholds. These are tuned policy values; changing any of
// them changes the emitted coarse tags.
const (
	minDetectionConf    = 0.5   // drop low-confidence raw detections
	minDetectionArea    = 0.002 // drop detections under 0.2% of frame area
	portraitMinFacePct  = 0.08  // largest face must cover 8% of frame
	fireMinPalettePct   = 0.12  // warm color must hold 12% of the palette
	fireMinContrast     = 0.18
)

// vehicleClasses are the COCO classes folded into the single "vehicle" tag.
var vehicleClasses = map[string]struct{}{
	"car": {}, "truck": {}, "bus": {}, "motorcycle": {}, "train": {},
}

var currencySymbols = []string{"$", "€", "£", "¥", "₩", "₹"}

var moneyKeywords = []string{
	"money", "cash", "dollar", "dollars", "price", "profit", "salary",
	"income", "rich", "million", "billion", "bank", "crypto", "bitcoin",
}

// Refined is the rule-based distillation of one raw vision payload.
type Refined struct {
	Tags               []string
	FaceCount          int
	LargestFaceAreaPct float64
	Contrast           float64
}

// RefineVision post-processes a raw vision payload into stable coarse tags.
// It is a pure function of (payload, title, ocrText): fixed rule order, no
// randomness, so repeated calls always produce the same tag set.
func RefineVision(a *vision.Analysis, title, ocrText string) Refined {
	out := Refined{Contrast: a.Contrast, FaceCount: a.Faces.Count}
	if a.Faces.Largest != nil {
		out.LargestFaceAreaPct = a.Faces.Largest.AreaPct
	}

	frameArea := float64(a.ImageSize.Width * a.ImageSize.Height)

	hasVehicle := false
	hasPerson := false
	for _, d := range a.Objects.Raw {
		if d.Conf < minDetectionConf {
			continue
		}
		if frameArea > 0 && (d.Box.W*d.Box.H)/frameArea < minDetectionArea {
			continue
		}
		if _, ok := vehicleClasses[d.Name]; ok {
			hasVehicle = true
		}
		if d.Name == "person" {
			hasPerson = true
		}
	}
	if hasVehicle {
		out.Tags = append(out.Tags, "vehicle")
	}
	if hasPerson {
		out.Tags = append(out.Tags, "person")
	}

	if a.Faces.Count >= 1 && out.LargestFaceAreaPct >= portraitMinFacePct {
		out.Tags = append(out.Tags, "portrait")
	}

	if mentionsMoney(title + " " + ocrText) {
		out.Tags = append(out.Tags, "money")
	}

	if hasFireSignal(a.Palette, a.Contrast) {
		out.Tags = append(out.Tags, "fire")
	}

	return out
}

func mentionsMoney(text string) bool {
	for _, sym := range currencySymbols {
		if strings.Contains(text, sym) {
			return true
		}
	}
	lower := strings.ToLower(text)
	for _, kw := range moneyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// hasFireSignal requires the dominant palette color to be warm at sufficient
// prevalence AND a minimum overall contrast. A warm secondary color is not a
// signal: only the single most prevalent entry is considered.
func hasFireSignal(palette []vision.PaletteColor, contrast float64) bool {
	if contrast < fireMinContrast || len(palette) == 0 {
		return false
	}

	// The vision service reports the palette sorted by prevalence, but the
	// dominant entry is re-derived here so the rule holds for any order.
	dominant := palette[0]
	for _, p := range palette[1:] {
		if p.Pct > dominant.Pct {
			dominant = p
		}
	}
	if dominant.Pct < fireMinPalettePct {
		return false
	}

	r, g, b, ok := parseHexColor(dominant.Hex)
	return ok && isWarm(r, g, b)
}

// isWarm is the red-dominant heuristic: strong red, suppressed green and blue.
func isWarm(r, g, b int) bool {
	return r >= 180 && g < 140 && b < 100
}

func parseHexColor(hex string) (r, g, b int, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	rv, err1 := strconv.ParseInt(hex[0:2], 16, 0)
	gv, err2 := strconv.ParseInt(hex[2:4], 16, 0)
	bv, err3 := strconv.ParseInt(hex[4:6], 16, 0)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	return int(rv), int(gv), int(bv), true
}
