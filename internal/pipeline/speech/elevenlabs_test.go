package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{APIKey: "dummy-key"})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}

func TestValidVoice(t *testing.T) {
	assert.True(t, ValidVoice("adam"))
	assert.True(t, ValidVoice("rachel"))
	assert.True(t, ValidVoice(" Rachel "))
	assert.False(t, ValidVoice("optimus"))
	assert.False(t, ValidVoice(""))
	assert.Len(t, Voices(), 9)
}

func TestSynthesizeWritesAudioFile(t *testing.T) {
	var gotPath, gotKey, gotFormat string
	var gotBody synthesizeRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		gotFormat = r.URL.Query().Get("output_format")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "secret-key", BaseURL: server.URL, RequestsPerSecond: 100})

	outPath := filepath.Join(t.TempDir(), "narration.mp3")
	require.NoError(t, c.Synthesize(context.Background(), "Did you know...", "rachel", outPath))

	assert.Equal(t, "/v1/text-to-speech/21m00Tcm4TlvDq8ikWAM", gotPath)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "mp3_44100_128", gotFormat)

	assert.Equal(t, "Did you know...", gotBody.Text)
	assert.Equal(t, "eleven_monolingual_v1", gotBody.ModelID)
	assert.Equal(t, 0.5, gotBody.VoiceSettings.Stability)
	assert.Equal(t, 0.5, gotBody.VoiceSettings.SimilarityBoost)
	assert.True(t, gotBody.VoiceSettings.UseSpeakerBoost)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))
}

func TestSynthesizeFallsBackToDefaultVoice(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("mp3"))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "secret-key", BaseURL: server.URL, RequestsPerSecond: 100})

	outPath := filepath.Join(t.TempDir(), "narration.mp3")
	require.NoError(t, c.Synthesize(context.Background(), "text", "optimus", outPath))
	assert.Equal(t, "/v1/text-to-speech/pNInz6obpgDQGcFmaJgB", gotPath, "unknown voice must use the default")

	require.NoError(t, c.Synthesize(context.Background(), "text", "", outPath))
	assert.Equal(t, "/v1/text-to-speech/pNInz6obpgDQGcFmaJgB", gotPath)
}

func TestSynthesizeReportsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "bad-key", BaseURL: server.URL, RequestsPerSecond: 100})

	outPath := filepath.Join(t.TempDir(), "narration.mp3")
	err := c.Synthesize(context.Background(), "text", "adam", outPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.NoFileExists(t, outPath)
}
