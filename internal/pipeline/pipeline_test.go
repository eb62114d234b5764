package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidforge/vidforge/internal/domain"
)

type fakeScript struct {
	script    string
	scriptErr error
	segments  []SearchSegment
	searchErr error
}

func (f *fakeScript) WriteScript(context.Context, string) (string, error) {
	return f.script, f.scriptErr
}

func (f *fakeScript) SearchTerms(context.Context, string, []CaptionSegment) ([]SearchSegment, error) {
	return f.segments, f.searchErr
}

type fakeSpeech struct {
	err error
}

func (f *fakeSpeech) Synthesize(_ context.Context, _, _, outPath string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("mp3"), 0o644)
}

type fakeFootage struct {
	fetched []SearchSegment
	err     error
}

func (f *fakeFootage) Fetch(_ context.Context, segment SearchSegment, dir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.fetched = append(f.fetched, segment)
	path := filepath.Join(dir, fmt.Sprintf("clip_%d.mp4", len(f.fetched)))
	return path, os.WriteFile(path, []byte("clip"), 0o644)
}

type fakeRenderer struct {
	duration float64
	spec     *ComposeSpec
	err      error
}

func (f *fakeRenderer) ProbeDuration(context.Context, string) (float64, error) {
	return f.duration, nil
}

func (f *fakeRenderer) Compose(_ context.Context, spec ComposeSpec) error {
	if f.err != nil {
		return f.err
	}
	f.spec = &spec
	return os.WriteFile(spec.OutputPath, []byte("video"), 0o644)
}

type fakeUploader struct {
	url string
	err error
}

func (f *fakeUploader) Upload(_ context.Context, _, jobID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url + jobID + ".mp4", nil
}

type recordingObserver struct {
	progress []int
	steps    []string
	script   string
}

func (o *recordingObserver) Progress(progress int, step string) {
	o.progress = append(o.progress, progress)
	o.steps = append(o.steps, step)
}

func (o *recordingObserver) Script(script string) {
	o.script = script
}

func testJob() domain.Job {
	return domain.Job{ID: "job-1", InputText: "history of tea", Voice: "adam"}
}

const testScript = "Did you know tea was discovered over four thousand years ago in ancient China by a curious emperor"

func newTestPipeline(t *testing.T, cfg Config) (*Pipeline, string) {
	t.Helper()
	workDir := t.TempDir()
	cfg.WorkDir = workDir
	if cfg.Script == nil {
		cfg.Script = &fakeScript{
			script: testScript,
			segments: []SearchSegment{
				{Start: 0, End: 6, Terms: []string{"tea plantation"}},
				{Start: 6, End: 12, Terms: []string{"ancient china"}},
			},
		}
	}
	if cfg.Speech == nil {
		cfg.Speech = &fakeSpeech{}
	}
	if cfg.Footage == nil {
		cfg.Footage = &fakeFootage{}
	}
	if cfg.Renderer == nil {
		cfg.Renderer = &fakeRenderer{duration: 12}
	}
	return New(cfg), workDir
}

func TestRunProducesLocalVideo(t *testing.T) {
	renderer := &fakeRenderer{duration: 12}
	p, workDir := newTestPipeline(t, Config{Renderer: renderer})
	obs := &recordingObserver{}

	res, err := p.Run(context.Background(), testJob(), obs)
	require.NoError(t, err)

	wantPath := filepath.Join(workDir, "job-1", "video_job-1.mp4")
	assert.Equal(t, wantPath, res.LocalPath)
	assert.Empty(t, res.URL)
	assert.Equal(t, testScript, res.Script)
	assert.FileExists(t, wantPath)

	assert.Equal(t, []int{10, 25, 40, 55, 70, 85}, obs.progress)
	assert.Equal(t, []string{
		"Generating script...",
		"Generating audio...",
		"Generating captions...",
		"Finding background videos...",
		"Downloading videos...",
		"Rendering video...",
	}, obs.steps)
	assert.Equal(t, testScript, obs.script)

	require.NotNil(t, renderer.spec)
	var covered float64
	for _, clip := range renderer.spec.Clips {
		covered += clip.Duration
	}
	assert.InDelta(t, 12, covered, 1e-9, "clips must cover the narration")
	require.NotEmpty(t, renderer.spec.Captions)
	assert.Equal(t, 12.0, renderer.spec.Captions[len(renderer.spec.Captions)-1].End)

	entries, err := os.ReadDir(filepath.Join(workDir, "job-1"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "intermediates must be removed after rendering")
	assert.Equal(t, "video_job-1.mp4", entries[0].Name())
}

func TestRunUploadsAndRemovesLocal(t *testing.T) {
	p, workDir := newTestPipeline(t, Config{
		Uploader: &fakeUploader{url: "https://cdn.example.com/videos/"},
	})
	obs := &recordingObserver{}

	res, err := p.Run(context.Background(), testJob(), obs)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/videos/job-1.mp4", res.URL)
	assert.Empty(t, res.LocalPath)
	assert.NoDirExists(t, filepath.Join(workDir, "job-1"))
	assert.Contains(t, obs.progress, 95)
	assert.Contains(t, obs.steps, "Uploading video...")
}

func TestRunKeepsLocalFileWhenConfigured(t *testing.T) {
	p, workDir := newTestPipeline(t, Config{
		Uploader:  &fakeUploader{url: "https://cdn.example.com/videos/"},
		KeepLocal: true,
	})

	res, err := p.Run(context.Background(), testJob(), &recordingObserver{})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/videos/job-1.mp4", res.URL)
	assert.Equal(t, filepath.Join(workDir, "job-1", "video_job-1.mp4"), res.LocalPath)
	assert.FileExists(t, res.LocalPath)
}

func TestRunWrapsStepFailures(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		step string
	}{
		{
			name: "script",
			cfg:  Config{Script: &fakeScript{scriptErr: errors.New("quota exceeded")}},
			step: "script",
		},
		{
			name: "speech",
			cfg:  Config{Speech: &fakeSpeech{err: errors.New("service unavailable")}},
			step: "speech",
		},
		{
			name: "footage",
			cfg:  Config{Footage: &fakeFootage{err: errors.New("no results")}},
			step: "footage",
		},
		{
			name: "render",
			cfg:  Config{Renderer: &fakeRenderer{duration: 12, err: errors.New("exit status 1")}},
			step: "render",
		},
		{
			name: "upload",
			cfg:  Config{Uploader: &fakeUploader{err: errors.New("access denied")}},
			step: "upload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, workDir := newTestPipeline(t, tt.cfg)

			_, err := p.Run(context.Background(), testJob(), &recordingObserver{})
			require.Error(t, err)

			var pe *domain.PipelineError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.step, pe.Step)

			assert.NoDirExists(t, filepath.Join(workDir, "job-1"), "failed runs must not leave artifacts")
		})
	}
}

func TestRunFallsBackToTopicSearch(t *testing.T) {
	footage := &fakeFootage{}
	p, _ := newTestPipeline(t, Config{
		Script:  &fakeScript{script: testScript},
		Footage: footage,
	})

	_, err := p.Run(context.Background(), testJob(), &recordingObserver{})
	require.NoError(t, err)

	require.Len(t, footage.fetched, 1)
	assert.Equal(t, []string{"history of tea"}, footage.fetched[0].Terms)
	assert.Equal(t, 0.0, footage.fetched[0].Start)
	assert.Equal(t, 12.0, footage.fetched[0].End)
}
