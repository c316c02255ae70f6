package ytapi

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ShortsResult is the outcome of a shorts-redirect probe.
type ShortsResult string

const (
	ShortsYes     ShortsResult = "short"
	ShortsNo      ShortsResult = "not-short"
	ShortsUnknown ShortsResult = "unknown"
)

const probeTimeout = 5 * time.Second

// probeClient never follows redirects: the redirect itself is the signal.
var probeClient = &http.Client{
	Timeout: probeTimeout,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// ProbeShortsRedirect classifies a video as short-form by requesting its
// /shorts/ URL: a 200 means YouTube serves it as a short, a redirect means it
// is a regular video. Failures degrade to unknown, never an error.
func (c *Client) ProbeShortsRedirect(ctx context.Context, videoID string) ShortsResult {
	if cached := c.cache.GetShortsProbe(ctx, videoID); cached != "" {
		return ShortsResult(cached)
	}

	url := fmt.Sprintf("https://www.youtube.com/shorts/%s", videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return ShortsUnknown
	}

	resp, err := probeClient.Do(req)
	if err != nil {
		c.log.Debug().Str("videoId", videoID).Err(err).Msg("shorts probe failed")
		return ShortsUnknown
	}
	resp.Body.Close()

	var result ShortsResult
	switch {
	case resp.StatusCode == http.StatusOK:
		result = ShortsYes
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		result = ShortsNo
	default:
		return ShortsUnknown
	}

	c.cache.SetShortsProbe(ctx, videoID, string(result))
	return result
}

// ProbeURLExists reports whether a HEAD request for the URL returns 200.
func (c *Client) ProbeURLExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := probeClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
