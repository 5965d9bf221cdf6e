// Package render produces the final captioned podcast video with ffmpeg.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"blogcast/internal/config"
	"blogcast/internal/services"
	"blogcast/internal/timeline"
)

// Renderer drives ffmpeg to compose the animated background, burned-in
// captions, and the podcast audio into a single video file.
type Renderer struct {
	binary       string
	width        int
	height       int
	fps          int
	introSeconds float64
	outroSeconds float64
}

// runCommand is swapped out by tests.
var runCommand = func(cmd *exec.Cmd) ([]byte, error) {
	return cmd.CombinedOutput()
}

// New constructs a Renderer from configuration.
func New(cfg *config.Config) *Renderer {
	return &Renderer{
		binary:       cfg.Render.FFmpegBinary,
		width:        cfg.Render.Width,
		height:       cfg.Render.Height,
		fps:          cfg.Render.FPS,
		introSeconds: cfg.Render.IntroSeconds,
		outroSeconds: cfg.Render.OutroSeconds,
	}
}

// IntroSeconds reports the silent lead-in placed before the first caption.
func (r *Renderer) IntroSeconds() float64 {
	return r.introSeconds
}

// Render composes the video: an animated gradient background for the full
// runtime, captions from the cue timeline shifted past the intro, and the
// audio muxed at the intro offset. audioDuration is the measured length of
// audioPath in seconds.
func (r *Renderer) Render(ctx context.Context, audioPath string, audioDuration float64, cues []timeline.Cue, outputPath string) error {
	const op = "render"

	if audioDuration <= 0 {
		return services.Wrap(services.ErrRender, "video", op, "non-positive audio duration", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return services.Wrap(services.ErrRender, "video", op, "audio file missing", err)
	}

	total := r.introSeconds + audioDuration + r.outroSeconds

	workDir := filepath.Dir(outputPath)
	subtitlePath := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))+".ass")
	shifted := timeline.Shift(cues, r.introSeconds)
	if err := os.WriteFile(subtitlePath, []byte(Subtitles(shifted, r.width, r.height)), 0o644); err != nil {
		return services.Wrap(services.ErrRender, "video", op, "write subtitles", err)
	}
	defer os.Remove(subtitlePath)

	args := r.buildArgs(audioPath, subtitlePath, outputPath, total)
	cmd := exec.CommandContext(ctx, r.binary, args...)
	output, err := runCommand(cmd)
	if err != nil {
		_ = os.Remove(outputPath)
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return services.Wrap(services.ErrRender, "video", op, "ffmpeg failed", err)
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		return services.Wrap(services.ErrRender, "video", op, "no video produced", statErr)
	}
	return nil
}

func (r *Renderer) buildArgs(audioPath, subtitlePath, outputPath string, total float64) []string {
	background := fmt.Sprintf(
		"gradients=size=%dx%d:speed=0.02:duration=%.3f:rate=%d",
		r.width, r.height, total, r.fps,
	)
	introMillis := int(r.introSeconds * 1000)
	filter := fmt.Sprintf(
		"[0:v]subtitles=%s[v];[1:a]adelay=%d|%d,apad=pad_dur=%.3f[a]",
		escapeFilterPath(subtitlePath),
		introMillis, introMillis,
		r.outroSeconds,
	)

	return []string{
		"-y",
		"-f", "lavfi",
		"-i", background,
		"-i", audioPath,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", "libx264",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", fmt.Sprintf("%.3f", total),
		"-r", fmt.Sprintf("%d", r.fps),
		outputPath,
	}
}

// escapeFilterPath quotes characters the ffmpeg filter parser treats
// specially.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, ":", `\:`, "'", `\'`, ",", `\,`, "[", `\[`, "]", `\]`)
	return replacer.Replace(path)
}
