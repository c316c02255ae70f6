package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const ocrTimeout = 20 * time.Second

// OCRResult is the text extracted from one image.
type OCRResult struct {
	Text      string   `json:"text"`
	CharCount int      `json:"charCount"`
	AreaPct   *float64 `json:"areaPct"`
}

// OCRClient calls the OCR service.
type OCRClient struct {
	baseURL string
	http    *http.Client
}

func NewOCRClient(baseURL string) *OCRClient {
	return &OCRClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: ocrTimeout},
	}
}

// Recognize uploads the image and returns the recognized text with its
// character count and on-image area percentage. Callers degrade errors to an
// empty result; OCR failure never aborts an enrichment.
func (c *OCRClient) Recognize(ctx context.Context, imagePath string) (*OCRResult, error) {
	resp, err := postImageField(ctx, c.http, c.baseURL+"/ocr", imagePath, "file")
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr: status %d", resp.StatusCode)
	}

	var out OCRResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ocr: decode: %w", err)
	}
	return &out, nil
}
