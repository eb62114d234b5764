// Package speech synthesizes narration audio with the ElevenLabs
// text-to-speech API.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public ElevenLabs API endpoint.
	DefaultBaseURL = "https://api.elevenlabs.io"

	// DefaultVoice is used when a job does not name a voice.
	DefaultVoice = "adam"

	// modelID is the ElevenLabs model used for narration.
	modelID = "eleven_monolingual_v1"

	// outputFormat is 44.1kHz 128kbps mp3, what the renderer expects.
	outputFormat = "mp3_44100_128"

	requestTimeout = 2 * time.Minute
)

// voiceIDs maps friendly voice names to ElevenLabs voice ids.
var voiceIDs = map[string]string{
	"adam":   "pNInz6obpgDQGcFmaJgB",
	"antoni": "ErXwobaYiN019PkySvjV",
	"arnold": "VR6AewLTigWG4xSOukaG",
	"bella":  "EXAVITQu4vr4xnSDxMaL",
	"domi":   "AZnzlk1XvdvUeBnXmlld",
	"elli":   "MF3mGyEYCl7XYWbV9V6O",
	"josh":   "TxGEqnHWrfWFTfGW9XjX",
	"rachel": "21m00Tcm4TlvDq8ikWAM",
	"sam":    "yoZ06aMxZJJ28mfd3POQ",
}

// Voices returns the known voice names.
func Voices() []string {
	names := make([]string, 0, len(voiceIDs))
	for name := range voiceIDs {
		names = append(names, name)
	}
	return names
}

// ValidVoice reports whether name maps to a known voice.
func ValidVoice(name string) bool {
	_, ok := voiceIDs[normalizeVoice(name)]
	return ok
}

func normalizeVoice(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Config holds client configuration
type Config struct {
	APIKey string

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string

	// RequestsPerSecond throttles outgoing calls. Zero means 2 rps.
	RequestsPerSecond float64
}

// Client implements pipeline.SpeechSynthesizer on the ElevenLabs REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a speech client from config. The API key is sent as-is;
// a missing one surfaces as a 401 on the first synthesis call.
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

// Synthesize renders text to an mp3 file at outPath. An unknown or empty
// voice name falls back to DefaultVoice.
func (c *Client) Synthesize(ctx context.Context, text, voice, outPath string) error {
	voiceID, ok := voiceIDs[normalizeVoice(voice)]
	if !ok {
		voiceID = voiceIDs[DefaultVoice]
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal synthesize request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", c.baseURL, voiceID, outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call elevenlabs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("elevenlabs returned %d: %s", resp.StatusCode, string(detail))
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	return nil
}
