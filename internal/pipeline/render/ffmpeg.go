// Package render composes the final video with ffmpeg: background clips are
// normalized to the render format, concatenated, captioned with drawtext,
// and muxed with the narration track.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vidforge/vidforge/internal/pipeline"
	"github.com/vidforge/vidforge/shared/logger"
)

const (
	// DefaultFPS is the output frame rate.
	DefaultFPS = 25

	// scalePadFilter letterboxes any input into the 1920x1080 render frame.
	scalePadFilter = "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2,setsar=1"

	captionFontSize     = 48
	captionBottomMargin = 150

	// stderrTail bounds how much ffmpeg output lands in error messages.
	stderrTail = 400
)

// Config holds renderer configuration
type Config struct {
	Logger *logger.Logger

	// FFmpegPath and FFprobePath default to the binaries on PATH.
	FFmpegPath  string
	FFprobePath string

	// FPS defaults to DefaultFPS.
	FPS int

	// FontFile is an optional path to a .ttf used for captions. When empty
	// drawtext falls back to the fontconfig default.
	FontFile string
}

// Renderer implements pipeline.Renderer on ffmpeg and ffprobe.
type Renderer struct {
	logger   *logger.Logger
	ffmpeg   string
	ffprobe  string
	fps      int
	fontFile string
}

// New creates a renderer from config.
func New(cfg Config) *Renderer {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault()
	}
	ffmpeg := cfg.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := cfg.FFprobePath
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	fps := cfg.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Renderer{logger: log, ffmpeg: ffmpeg, ffprobe: ffprobe, fps: fps, fontFile: cfg.FontFile}
}

// ProbeDuration returns the media duration in seconds.
func (r *Renderer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, r.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}

// Compose builds spec.OutputPath from the clips, captions and narration.
// Intermediate files are written into spec.WorkDir.
func (r *Renderer) Compose(ctx context.Context, spec pipeline.ComposeSpec) error {
	if len(spec.Clips) == 0 {
		return errors.New("no clips to compose")
	}

	normalized := make([]string, 0, len(spec.Clips))
	for i, clip := range spec.Clips {
		clipDur, err := r.ProbeDuration(ctx, clip.Path)
		if err != nil {
			// Unmeasurable clips are treated as exactly long enough.
			clipDur = clip.Duration
		}

		outPath := filepath.Join(spec.WorkDir, fmt.Sprintf("norm_%03d.mp4", i))
		if err := r.run(ctx, normalizeArgs(clip.Path, clipDur, clip.Duration, r.fps, outPath)); err != nil {
			return fmt.Errorf("normalize clip %d: %w", i, err)
		}
		normalized = append(normalized, outPath)
	}

	listPath := filepath.Join(spec.WorkDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(concatList(normalized)), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	silentPath := filepath.Join(spec.WorkDir, "silent.mp4")
	if err := r.run(ctx, concatArgs(listPath, silentPath)); err != nil {
		return fmt.Errorf("concat clips: %w", err)
	}

	videoPath := silentPath
	if len(spec.Captions) > 0 {
		videoPath = filepath.Join(spec.WorkDir, "captioned.mp4")
		if err := r.run(ctx, captionArgs(silentPath, spec.Captions, r.fontFile, videoPath)); err != nil {
			return fmt.Errorf("burn captions: %w", err)
		}
	}

	if err := r.run(ctx, muxArgs(videoPath, spec.AudioPath, spec.OutputPath)); err != nil {
		return fmt.Errorf("mux narration: %w", err)
	}

	r.logger.Debug("Video composed",
		slog.String("output", spec.OutputPath),
		slog.Int("clips", len(spec.Clips)),
		slog.Int("captions", len(spec.Captions)),
	)
	return nil
}

func (r *Renderer) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", err, tail(stderr.String(), stderrTail))
	}
	return nil
}

// normalizeArgs trims a long clip or loops a short one to exactly target
// seconds in the render format, dropping any source audio.
func normalizeArgs(inPath string, clipDur, target float64, fps int, outPath string) []string {
	args := []string{"-y"}
	if clipDur > 0 && clipDur < target {
		loops := int(target/clipDur) + 2
		args = append(args, "-stream_loop", strconv.Itoa(loops))
	}
	return append(args,
		"-i", inPath,
		"-t", fmt.Sprintf("%.3f", target),
		"-vf", scalePadFilter,
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		outPath,
	)
}

// concatList renders the concat demuxer file body.
func concatList(paths []string) string {
	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		lines = append(lines, fmt.Sprintf("file '%s'", p))
	}
	return strings.Join(lines, "\n")
}

// concatArgs joins pre-normalized clips without re-encoding.
func concatArgs(listPath, outPath string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	}
}

// captionArgs burns every caption into the silent video in one pass.
func captionArgs(inPath string, captions []pipeline.CaptionSegment, fontFile, outPath string) []string {
	return []string{
		"-y",
		"-i", inPath,
		"-vf", captionFilter(captions, fontFile),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		outPath,
	}
}

// captionFilter chains one drawtext per caption, each enabled only during
// its time window.
func captionFilter(captions []pipeline.CaptionSegment, fontFile string) string {
	font := ""
	if fontFile != "" {
		font = "fontfile=" + escapeText(fontFile) + ":"
	}
	filters := make([]string, 0, len(captions))
	for _, c := range captions {
		filters = append(filters, fmt.Sprintf(
			"drawtext=%stext=%s:fontcolor=white:fontsize=%d:borderw=3:bordercolor=black:x=(w-tw)/2:y=h-th-%d:enable='between(t,%.3f,%.3f)'",
			font, escapeText(c.Text), captionFontSize, captionBottomMargin, c.Start, c.End,
		))
	}
	return strings.Join(filters, ",")
}

// muxArgs merges the captioned video and the narration into the final MP4.
func muxArgs(videoPath, audioPath, outPath string) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outPath,
	}
}

// escapeText protects caption text from the filtergraph and drawtext parsers.
func escapeText(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`,`, `\,`,
		`;`, `\;`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return replacer.Replace(s)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
