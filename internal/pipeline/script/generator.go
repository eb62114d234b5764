// Package script generates narration and footage search terms with the
// OpenAI Chat Completions API.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/vidforge/vidforge/internal/pipeline"
)

const (
	// DefaultModel is the chat model used for both script and search terms.
	DefaultModel = "gpt-4o"

	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 32 * time.Second
)

const scriptSystemPrompt = `You are a seasoned content writer for a YouTube Shorts channel, specializing in facts videos.
Your facts shorts are concise, each lasting less than 50 seconds (approximately 140 words).
They are incredibly engaging and original. When a user requests a specific type of facts short, you will create it.

For instance, if the user asks for:
Weird facts
You would produce content like this:

Weird facts you don't know:
- Bananas are berries, but strawberries aren't.
- A single cloud can weigh over a million pounds.
- There's a species of jellyfish that is biologically immortal.
- Honey never spoils; archaeologists have found pots of honey in ancient Egyptian tombs that are over 3,000 years old and still edible.
- The shortest war in history was between Britain and Zanzibar on August 27, 1896. Zanzibar surrendered after 38 minutes.
- Octopuses have three hearts and blue blood.

You are now tasked with creating the best short script based on the user's requested type of 'facts'.

Keep it brief, highly interesting, and unique.

Stictly output the script in a JSON format like below, and only provide a parsable JSON object with the key 'script'.

# Output
{"script": "Here is the script ..."}`

const searchSystemPrompt = `You are a video editor picking background footage for a narrated facts short.
For each time window you receive, choose visually concrete English search terms for a stock video site.
Each term must describe something filmable, like 'steaming coffee cup' or 'city skyline at night'.
Never use abstract concepts, names of people, or anything that cannot be seen on camera.

Adjacent windows that describe the same visual should share one segment.
Segments must not overlap and together must cover the whole narration.

Strictly output a parsable JSON object like below, with 1 to 3 terms per segment:

# Output
{"segments": [{"start": 0.0, "end": 4.2, "terms": ["steaming coffee cup", "espresso pouring"]}]}`

// Config holds generator configuration
type Config struct {
	APIKey string

	// BaseURL overrides the OpenAI endpoint, mainly for tests.
	BaseURL string

	// Model defaults to DefaultModel when empty.
	Model string
}

// Generator implements pipeline.ScriptWriter on the Chat Completions API.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator creates a generator from config. An empty API key is not
// rejected here; the API answers 401 and the failure lands on the job.
func NewGenerator(cfg Config) *Generator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// WriteScript produces the narration text for a topic.
func (g *Generator) WriteScript(ctx context.Context, topic string) (string, error) {
	content, err := g.complete(ctx, scriptSystemPrompt, topic)
	if err != nil {
		return "", err
	}

	var payload struct {
		Script string `json:"script"`
	}
	if err := decodeJSON(content, &payload); err != nil {
		return "", fmt.Errorf("parse script response: %w", err)
	}

	script := strings.TrimSpace(payload.Script)
	if script == "" {
		return "", errors.New("model response contained no script")
	}
	return script, nil
}

// SearchTerms produces timed footage queries for the caption windows.
func (g *Generator) SearchTerms(ctx context.Context, script string, captions []pipeline.CaptionSegment) ([]pipeline.SearchSegment, error) {
	content, err := g.complete(ctx, searchSystemPrompt, buildSearchPrompt(script, captions))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Segments []struct {
			Start float64  `json:"start"`
			End   float64  `json:"end"`
			Terms []string `json:"terms"`
		} `json:"segments"`
	}
	if err := decodeJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("parse search terms response: %w", err)
	}

	segments := make([]pipeline.SearchSegment, 0, len(payload.Segments))
	for _, s := range payload.Segments {
		segments = append(segments, pipeline.SearchSegment{
			Start: s.Start,
			End:   s.End,
			Terms: s.Terms,
		})
	}
	return segments, nil
}

// complete runs one JSON-mode chat completion, retrying rate limit errors
// with exponential backoff.
func (g *Generator) complete(ctx context.Context, system, user string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		completion, err := g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", fmt.Errorf("chat completion: %w", err)
		}

		if len(completion.Choices) == 0 {
			return "", errors.New("no completion choices returned")
		}
		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// decodeJSON parses a model response that may be wrapped in markdown fences
// or surrounded by prose.
func decodeJSON(content string, v any) error {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return errors.New("no JSON object in model response")
	}
	return json.Unmarshal([]byte(trimmed[start:end+1]), v)
}

// buildSearchPrompt lists the narration and its caption windows for the model.
func buildSearchPrompt(script string, captions []pipeline.CaptionSegment) string {
	var b strings.Builder
	b.WriteString("Narration script:\n")
	b.WriteString(script)
	b.WriteString("\n\nTime windows:\n")
	for _, c := range captions {
		fmt.Fprintf(&b, "[%.2f - %.2f] %s\n", c.Start, c.End, c.Text)
	}
	return b.String()
}
