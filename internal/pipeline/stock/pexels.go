// Package stock finds and downloads background footage from the Pexels
// video API.
package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/vidforge/vidforge/internal/pipeline"
)

const (
	// DefaultBaseURL is the public Pexels API endpoint.
	DefaultBaseURL = "https://api.pexels.com"

	perPage      = 15
	targetWidth  = 1920
	targetHeight = 1080

	downloadAttempts = 3
	downloadBackoff  = 500 * time.Millisecond

	requestTimeout = 2 * time.Minute
)

// Config holds client configuration
type Config struct {
	APIKey string

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string

	// RequestsPerSecond throttles outgoing calls. Zero means 2 rps.
	RequestsPerSecond float64
}

// Client implements pipeline.FootageSource on the Pexels video API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a footage client from config. The API key is sent
// as-is; a missing one surfaces as a 401 on the first search.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type videoFile struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileType string `json:"file_type"`
	Link     string `json:"link"`
}

type video struct {
	ID         int         `json:"id"`
	Duration   float64     `json:"duration"`
	VideoFiles []videoFile `json:"video_files"`
}

type searchResponse struct {
	Videos []video `json:"videos"`
}

// Fetch tries each search term in order and downloads the first usable clip
// into dir, returning its path.
func (c *Client) Fetch(ctx context.Context, segment pipeline.SearchSegment, dir string) (string, error) {
	minDuration := segment.End - segment.Start

	for _, term := range segment.Terms {
		link, err := c.search(ctx, term, minDuration)
		if err != nil {
			return "", err
		}
		if link == "" {
			continue
		}
		return c.download(ctx, link, dir)
	}

	return "", fmt.Errorf("no stock footage found for terms %v", segment.Terms)
}

// search returns the download link of the best matching clip, or "" when
// the term yields nothing usable.
func (c *Client) search(ctx context.Context, term string, minDuration float64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/videos/search?query=%s&per_page=%d", c.baseURL, url.QueryEscape(term), perPage)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call pexels: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pexels returned %d: %s", resp.StatusCode, string(detail))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	return selectFile(result.Videos, minDuration), nil
}

// selectFile picks the mp4 file closest to the render resolution, preferring
// clips long enough to cover the segment without looping.
func selectFile(videos []video, minDuration float64) string {
	best := ""
	bestScore := -1
	bestCovers := false

	for _, v := range videos {
		covers := v.Duration >= minDuration
		for _, f := range v.VideoFiles {
			if f.FileType != "video/mp4" || f.Link == "" {
				continue
			}
			score := abs(f.Width-targetWidth) + abs(f.Height-targetHeight)
			better := false
			switch {
			case best == "":
				better = true
			case covers != bestCovers:
				better = covers
			default:
				better = score < bestScore
			}
			if better {
				best = f.Link
				bestScore = score
				bestCovers = covers
			}
		}
	}

	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// download fetches the clip into dir, retrying transient failures.
func (c *Client) download(ctx context.Context, link, dir string) (string, error) {
	outPath := filepath.Join(dir, clipFileName(link))

	var lastErr error
	for attempt := 0; attempt < downloadAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * downloadBackoff):
			}
		}

		if err := c.downloadOnce(ctx, link, outPath); err != nil {
			lastErr = err
			continue
		}
		return outPath, nil
	}

	return "", fmt.Errorf("download %s: %w", link, lastErr)
}

func (c *Client) downloadOnce(ctx context.Context, link, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(outPath)
		return err
	}
	return nil
}

// clipFileName derives a stable local name from the download link.
func clipFileName(link string) string {
	if u, err := url.Parse(link); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return fmt.Sprintf("clip_%d.mp4", time.Now().UnixNano())
}
