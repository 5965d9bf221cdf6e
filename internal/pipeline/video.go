package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"blogcast/internal/config"
	"blogcast/internal/dialogue"
	"blogcast/internal/logging"
	"blogcast/internal/queue"
	"blogcast/internal/services"
	"blogcast/internal/stage"
	"blogcast/internal/timeline"
)

// Video renders the episode audio into a captioned video. The caption
// timeline comes from the audio stage when available, otherwise it is
// estimated from the script so rendering can still proceed.
type Video struct {
	cfg      *config.Config
	store    *queue.Store
	renderer VideoRenderer
	prober   DurationProber
	logger   *slog.Logger
}

// NewVideo constructs the video rendering stage.
func NewVideo(cfg *config.Config, store *queue.Store, renderer VideoRenderer, prober DurationProber, logger *slog.Logger) *Video {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Video{cfg: cfg, store: store, renderer: renderer, prober: prober, logger: logger}
}

func (v *Video) Prepare(ctx context.Context, task *queue.Task) error {
	return prepare(ctx, v.store, task, ProgressVideo, "Rendering video")
}

func (v *Video) Execute(ctx context.Context, task *queue.Task) error {
	const stageName = "video"

	if strings.TrimSpace(task.AudioFile) == "" {
		return services.Wrap(services.ErrRender, stageName, "resolve audio", "no audio file on task", nil)
	}

	duration, err := v.prober.Duration(ctx, task.AudioFile)
	if err != nil {
		return services.Wrap(services.ErrRender, stageName, "probe audio", "", err)
	}

	cues, err := v.resolveCues(task, duration)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(v.cfg.MediaDir, fmt.Sprintf("podcast_%s.mp4", task.ID))
	if err := v.renderer.Render(ctx, task.AudioFile, duration, cues, outputPath); err != nil {
		return err
	}

	if err := v.store.SetVideoFile(ctx, task.ID, outputPath); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "persist video path", "", err)
	}
	task.VideoFile = outputPath

	logging.WithContext(ctx, v.logger).Info("video rendered",
		logging.Float64("duration_seconds", duration),
		logging.Int("cues", len(cues)),
		logging.String("output", outputPath),
	)
	return nil
}

// resolveCues prefers the measured timeline persisted by the audio stage and
// falls back to word-count estimates over the script.
func (v *Video) resolveCues(task *queue.Task, audioDuration float64) ([]timeline.Cue, error) {
	const stageName = "video"

	if strings.TrimSpace(task.TimelineJSON) != "" {
		var cues []timeline.Cue
		if err := json.Unmarshal([]byte(task.TimelineJSON), &cues); err != nil {
			return nil, services.Wrap(services.ErrRender, stageName, "decode timeline", "", err)
		}
		return cues, nil
	}

	if strings.TrimSpace(task.Script) == "" {
		return nil, nil
	}
	lines := dialogue.Parse(task.Script)
	segments := make([]timeline.Segment, 0, len(lines))
	for _, line := range lines {
		segments = append(segments, timeline.Segment{Speaker: line.Speaker, Text: line.Text})
	}
	return timeline.Estimate(segments, audioDuration), nil
}

func (v *Video) HealthCheck(context.Context) stage.Health {
	if v.renderer == nil {
		return stage.Unhealthy("video", "no renderer configured")
	}
	return stage.Healthy("video")
}
