package service

import (
	"math"
	"time"

	"github.com/razchen/youtube-ingest/internal/model"
)

// ParseISODuration converts an ISO-8601 duration string as returned by the
// Data API (e.g. "PT1H2M3S", "P1DT4H") to whole seconds. Malformed input
// yields 0.
func ParseISODuration(s string) int {
	if len(s) < 2 || s[0] != 'P' {
		return 0
	}

	total := 0
	num := 0
	haveNum := false
	inTime := false
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int(r-'0')
			haveNum = true
		case r == 'T':
			inTime = true
		case r == 'D' && haveNum:
			total += num * 86400
			num, haveNum = 0, false
		case r == 'H' && haveNum && inTime:
			total += num * 3600
			num, haveNum = 0, false
		case r == 'M' && haveNum && inTime:
			total += num * 60
			num, haveNum = 0, false
		case r == 'S' && haveNum && inTime:
			total += num
			num, haveNum = 0, false
		default:
			return 0
		}
	}
	return total
}

// Engagement is ln(views+1) / ln(subscribers+1). It is nil (not zero) when
// the channel has no positive subscriber count, and never negative otherwise.
func Engagement(views, subscribers int64) *float64 {
	if subscribers <= 0 || views < 0 {
		return nil
	}
	score := math.Log(float64(views)+1) / math.Log(float64(subscribers)+1)
	return &score
}

// Has720Plus reports whether the best thumbnail's native dimensions meet the
// 720p tier (1280x720).
func Has720Plus(width, height int) bool {
	return width >= 1280 || height >= 720
}

// KidsStatus folds the API's kids-content fields into a tri-state: the
// authoritative field wins, the self-declared field is the fallback, and
// absence of both is unknown — not false.
func KidsStatus(madeForKids, selfDeclared *bool) model.Tristate {
	if madeForKids != nil {
		return model.TristateFromBool(madeForKids)
	}
	if selfDeclared != nil {
		return model.TristateFromBool(selfDeclared)
	}
	return model.TriUnknown
}

// EffectiveLowerBound computes the publish-time floor for a catalog pass:
// an explicit override wins; otherwise the stored watermark minus a safety
// overlap (late listings, clock skew); otherwise a default lookback from now.
func EffectiveLowerBound(override, watermark *time.Time, now time.Time, overlap, lookback time.Duration) time.Time {
	if override != nil {
		return override.UTC()
	}
	if watermark != nil {
		return watermark.UTC().Add(-overlap)
	}
	return now.UTC().Add(-lookback)
}
