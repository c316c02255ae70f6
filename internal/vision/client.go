// Package vision holds clients for the external content-processing
// microservices: OCR and visual analysis. Both accept an image upload and
// return structured payloads; the pipeline treats their internals as opaque.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const analyzeTimeout = 30 * time.Second

// FaceBox is one detected face with its frame-area fraction.
type FaceBox struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	W       float64 `json:"w"`
	H       float64 `json:"h"`
	Area    float64 `json:"area"`
	AreaPct float64 `json:"areaPct"`
}

// Faces is the face-detection section of an analysis.
type Faces struct {
	Enabled bool      `json:"enabled"`
	Count   int       `json:"count"`
	Largest *FaceBox  `json:"largest,omitempty"`
	Boxes   []FaceBox `json:"boxes,omitempty"`
}

// Box is an object detection bounding box in pixels.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Detection is one raw object detection.
type Detection struct {
	Name string  `json:"name"`
	Conf float64 `json:"conf"`
	Box  Box     `json:"box"`
}

// Objects groups the service's coarse tags with raw detections.
type Objects struct {
	Tags []string    `json:"tags"`
	Raw  []Detection `json:"raw"`
}

// PaletteColor is one dominant color with its share of the sampled palette.
type PaletteColor struct {
	Hex string  `json:"hex"`
	Pct float64 `json:"pct"`
}

// ImageSize is the analyzed image's native dimensions.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Analysis is the full visual-analysis payload.
type Analysis struct {
	Faces     Faces          `json:"faces"`
	Objects   Objects        `json:"objects"`
	Palette   []PaletteColor `json:"palette"`
	Contrast  float64        `json:"contrast"`
	ImageSize ImageSize      `json:"imageSize"`
}

// Client calls the visual-analysis service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: analyzeTimeout},
	}
}

// Analyze uploads the image and returns face/object/palette/contrast features.
// Errors propagate: a failed analysis fails that video's enrichment and the
// row is retried on a future run.
func (c *Client) Analyze(ctx context.Context, imagePath string) (*Analysis, error) {
	resp, err := postImage(ctx, c.http, c.baseURL+"/analyze", imagePath)
	if err != nil {
		return nil, fmt.Errorf("vision analyze: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision analyze: status %d", resp.StatusCode)
	}

	var out Analysis
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("vision analyze: decode: %w", err)
	}
	return &out, nil
}

func postImage(ctx context.Context, client *http.Client, url, imagePath string) (*http.Response, error) {
	return postImageField(ctx, client, url, imagePath, "image")
}

// postImageField uploads a local file as a multipart form under the given
// field name. The analysis service expects "image", the OCR service "file".
func postImageField(ctx context.Context, client *http.Client, url, imagePath, field string) (*http.Response, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filepath.Base(imagePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return client.Do(req)
}
