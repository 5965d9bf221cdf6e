package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"blogcast/internal/config"
	"blogcast/internal/dialogue"
	"blogcast/internal/logging"
	"blogcast/internal/queue"
	"blogcast/internal/services"
	"blogcast/internal/stage"
	"blogcast/internal/timeline"
)

// Audio synthesizes one clip per dialogue line, measures each clip, and
// concatenates the survivors into the episode audio file. Lines whose
// synthesis or measurement fails are logged and skipped so one bad line
// does not sink the whole episode.
type Audio struct {
	cfg         *config.Config
	store       *queue.Store
	synthesizer SpeechSynthesizer
	prober      DurationProber
	logger      *slog.Logger
}

// NewAudio constructs the audio synthesis stage.
func NewAudio(cfg *config.Config, store *queue.Store, synthesizer SpeechSynthesizer, prober DurationProber, logger *slog.Logger) *Audio {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Audio{cfg: cfg, store: store, synthesizer: synthesizer, prober: prober, logger: logger}
}

func (a *Audio) Prepare(ctx context.Context, task *queue.Task) error {
	return prepare(ctx, a.store, task, ProgressAudio, "Synthesizing audio")
}

func (a *Audio) Execute(ctx context.Context, task *queue.Task) error {
	const stageName = "audio"
	log := logging.WithContext(ctx, a.logger)

	lines := dialogue.Parse(task.Script)
	if len(lines) == 0 {
		return services.Wrap(services.ErrSynthesis, stageName, "parse script", "script contains no dialogue lines", nil)
	}

	stagingDir := filepath.Join(a.cfg.StagingDir(), task.ID)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "create staging dir", "", err)
	}
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			log.Warn("failed to remove staging dir",
				logging.String("dir", stagingDir),
				logging.Error(err),
			)
		}
	}()

	clips := make([]string, 0, len(lines))
	segments := make([]timeline.Segment, 0, len(lines))
	for i, line := range lines {
		clipPath := filepath.Join(stagingDir, fmt.Sprintf("line_%03d.mp3", i))
		if err := a.synthesizer.Synthesize(ctx, line.Speaker, line.Text, clipPath); err != nil {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrTransient, stageName, "synthesize line", "", ctx.Err())
			}
			log.Warn("skipping line after synthesis failure",
				logging.Int("line", i),
				logging.String("speaker", line.Speaker),
				logging.Error(err),
			)
			continue
		}
		duration, err := a.prober.Duration(ctx, clipPath)
		if err != nil {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrTransient, stageName, "probe clip", "", ctx.Err())
			}
			log.Warn("skipping line after duration probe failure",
				logging.Int("line", i),
				logging.Error(err),
			)
			continue
		}
		clips = append(clips, clipPath)
		segments = append(segments, timeline.Segment{Speaker: line.Speaker, Text: line.Text, Duration: duration})
	}
	if len(clips) == 0 {
		return services.Wrap(services.ErrSynthesis, stageName, "synthesize", "no dialogue lines could be synthesized", nil)
	}

	cues := timeline.Build(segments)
	timelineJSON, err := json.Marshal(cues)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, stageName, "encode timeline", "", err)
	}
	if err := a.store.SetTimeline(ctx, task.ID, string(timelineJSON)); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "persist timeline", "", err)
	}
	task.TimelineJSON = string(timelineJSON)

	audioPath := filepath.Join(a.cfg.MediaDir, fmt.Sprintf("podcast_%s.mp3", task.ID))
	if err := a.concatenate(clips, audioPath, log); err != nil {
		return err
	}

	if err := a.store.SetAudioFile(ctx, task.ID, audioPath); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "persist audio path", "", err)
	}
	task.AudioFile = audioPath

	log.Info("audio synthesized",
		logging.Int("lines", len(lines)),
		logging.Int("clips", len(clips)),
		logging.String("output", audioPath),
	)
	return nil
}

// concatenate byte-appends MP3 clips into a single output file. MP3 frames
// are self-delimiting, so simple concatenation produces a playable stream.
func (a *Audio) concatenate(clips []string, outputPath string, log *slog.Logger) error {
	const stageName = "audio"

	out, err := os.Create(outputPath)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, stageName, "create output", "", err)
	}

	written := 0
	for _, clip := range clips {
		in, err := os.Open(clip)
		if err != nil {
			log.Warn("skipping unreadable clip",
				logging.String("clip", clip),
				logging.Error(err),
			)
			continue
		}
		_, copyErr := io.Copy(out, in)
		in.Close()
		if copyErr != nil {
			log.Warn("skipping clip after copy failure",
				logging.String("clip", clip),
				logging.Error(copyErr),
			)
			continue
		}
		written++
	}
	if written == 0 {
		out.Close()
		os.Remove(outputPath)
		return services.Wrap(services.ErrSynthesis, stageName, "concatenate clips", "no clips could be read", nil)
	}
	if err := out.Close(); err != nil {
		return services.Wrap(services.ErrSynthesis, stageName, "finalize output", "", err)
	}
	return nil
}

func (a *Audio) HealthCheck(ctx context.Context) stage.Health {
	type checker interface {
		HealthCheck(context.Context) error
	}
	if hc, ok := a.synthesizer.(checker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return stage.Unhealthy("audio", err.Error())
		}
	}
	return stage.Healthy("audio")
}
