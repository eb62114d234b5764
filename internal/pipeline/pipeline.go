// Package pipeline turns an input topic into a rendered, optionally
// uploaded, short video. The orchestrator owns step ordering and progress
// checkpoints; every external collaborator sits behind an interface so the
// worker and API can be exercised without network or ffmpeg.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vidforge/vidforge/internal/domain"
	"github.com/vidforge/vidforge/shared/logger"
)

// Observer receives job updates as the pipeline advances.
type Observer interface {
	Progress(progress int, step string)
	Script(script string)
}

// Result is what a finished pipeline hands back to the worker.
type Result struct {
	// LocalPath is the rendered file, empty when it was uploaded and removed.
	LocalPath string
	// URL is the public location when an uploader is configured.
	URL string
	// Script is the narration text that was generated for the job.
	Script string
}

// CaptionSegment is a caption shown over [Start, End) seconds.
type CaptionSegment struct {
	Start float64
	End   float64
	Text  string
}

// SearchSegment asks for background footage covering [Start, End) seconds.
// Terms are tried in order until one yields a usable clip.
type SearchSegment struct {
	Start float64
	End   float64
	Terms []string
}

// Clip is a downloaded video file that must cover Duration seconds.
type Clip struct {
	Path     string
	Duration float64
}

// ComposeSpec describes the final render.
type ComposeSpec struct {
	AudioPath  string
	Clips      []Clip
	Captions   []CaptionSegment
	OutputPath string
	WorkDir    string
}

// ScriptWriter produces narration and timed footage queries with an LLM.
type ScriptWriter interface {
	WriteScript(ctx context.Context, topic string) (string, error)
	SearchTerms(ctx context.Context, script string, captions []CaptionSegment) ([]SearchSegment, error)
}

// SpeechSynthesizer renders narration audio for a script.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

// FootageSource finds and downloads one background clip per segment.
type FootageSource interface {
	Fetch(ctx context.Context, segment SearchSegment, dir string) (string, error)
}

// Renderer measures media and composes the final video.
type Renderer interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Compose(ctx context.Context, spec ComposeSpec) error
}

// Uploader pushes the rendered file to object storage and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, jobID string) (string, error)
}

const (
	audioFileName = "narration.mp3"

	// captionWords is how many words a single burned-in caption holds.
	captionWords = 6
)

// Config wires a Pipeline.
type Config struct {
	Logger   *logger.Logger
	Script   ScriptWriter
	Speech   SpeechSynthesizer
	Footage  FootageSource
	Renderer Renderer

	// Uploader is optional; when nil the rendered file stays on disk.
	Uploader Uploader

	// WorkDir is the root for per-job working directories.
	WorkDir string

	// KeepLocal keeps the rendered file on disk even after a successful upload.
	KeepLocal bool
}

// Pipeline is the production Runner implementation.
type Pipeline struct {
	logger    *logger.Logger
	script    ScriptWriter
	speech    SpeechSynthesizer
	footage   FootageSource
	renderer  Renderer
	uploader  Uploader
	workDir   string
	keepLocal bool
}

// New creates a pipeline from its collaborators.
func New(cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault()
	}
	return &Pipeline{
		logger:    log,
		script:    cfg.Script,
		speech:    cfg.Speech,
		footage:   cfg.Footage,
		renderer:  cfg.Renderer,
		uploader:  cfg.Uploader,
		workDir:   cfg.WorkDir,
		keepLocal: cfg.KeepLocal,
	}
}

// Run executes every step for one job. Progress checkpoints and step names
// follow the service's status vocabulary; failures come back as
// *domain.PipelineError naming the step that broke.
func (p *Pipeline) Run(ctx context.Context, job domain.Job, obs Observer) (res Result, err error) {
	dir := filepath.Join(p.workDir, job.ID)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return Result{}, domain.NewPipelineError("workspace", mkErr)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(dir)
		}
	}()

	obs.Progress(10, "Generating script...")
	script, err := p.script.WriteScript(ctx, job.InputText)
	if err != nil {
		return Result{}, domain.NewPipelineError("script", err)
	}
	obs.Script(script)
	p.logger.Debug("Script generated", slog.String("job_id", job.ID), slog.Int("chars", len(script)))

	obs.Progress(25, "Generating audio...")
	audioPath := filepath.Join(dir, audioFileName)
	if err = p.speech.Synthesize(ctx, script, job.Voice, audioPath); err != nil {
		return Result{}, domain.NewPipelineError("speech", err)
	}

	obs.Progress(40, "Generating captions...")
	duration, err := p.renderer.ProbeDuration(ctx, audioPath)
	if err != nil {
		return Result{}, domain.NewPipelineError("captions", err)
	}
	captions := TimeCaptions(script, duration, captionWords)
	p.logger.Debug("Captions timed",
		slog.String("job_id", job.ID),
		slog.Float64("duration", duration),
		slog.Int("captions", len(captions)),
	)

	obs.Progress(55, "Finding background videos...")
	segments, err := p.script.SearchTerms(ctx, script, captions)
	if err != nil {
		return Result{}, domain.NewPipelineError("search", err)
	}
	segments = NormalizeSegments(segments, duration)
	if len(segments) == 0 {
		segments = []SearchSegment{{Start: 0, End: duration, Terms: []string{job.InputText}}}
	}

	obs.Progress(70, "Downloading videos...")
	clips := make([]Clip, 0, len(segments))
	for _, segment := range segments {
		clipPath, fetchErr := p.footage.Fetch(ctx, segment, dir)
		if fetchErr != nil {
			return Result{}, domain.NewPipelineError("footage", fetchErr)
		}
		clips = append(clips, Clip{Path: clipPath, Duration: segment.End - segment.Start})
	}

	obs.Progress(85, "Rendering video...")
	outputPath := filepath.Join(dir, fmt.Sprintf("video_%s.mp4", job.ID))
	spec := ComposeSpec{
		AudioPath:  audioPath,
		Clips:      clips,
		Captions:   captions,
		OutputPath: outputPath,
		WorkDir:    dir,
	}
	if err = p.renderer.Compose(ctx, spec); err != nil {
		return Result{}, domain.NewPipelineError("render", err)
	}
	p.removeIntermediates(dir, outputPath)

	res = Result{LocalPath: outputPath, Script: script}
	if p.uploader == nil {
		return res, nil
	}

	obs.Progress(95, "Uploading video...")
	url, err := p.uploader.Upload(ctx, outputPath, job.ID)
	if err != nil {
		return Result{}, domain.NewPipelineError("upload", err)
	}
	res.URL = url
	if !p.keepLocal {
		os.RemoveAll(dir)
		res.LocalPath = ""
	}
	return res, nil
}

// removeIntermediates drops everything in the job dir except the final video.
func (p *Pipeline) removeIntermediates(dir, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if path == keep {
			continue
		}
		if rmErr := os.RemoveAll(path); rmErr != nil {
			p.logger.Warn("Failed to remove intermediate file",
				slog.String("path", path),
				slog.String("error", rmErr.Error()),
			)
		}
	}
}
