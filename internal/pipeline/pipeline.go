// Package pipeline implements the four conversion stages: article
// extraction, script generation, audio synthesis, and video rendering.
// Each stage persists its outputs on the task record before the next
// stage runs.
package pipeline

import (
	"context"
	"log/slog"

	"blogcast/internal/config"
	"blogcast/internal/logging"
	"blogcast/internal/media/ffprobe"
	"blogcast/internal/queue"
	"blogcast/internal/render"
	"blogcast/internal/services/llm"
	"blogcast/internal/services/scraper"
	"blogcast/internal/services/tts"
	"blogcast/internal/stage"
	"blogcast/internal/timeline"
)

// Stage progress checkpoints reported while each stage is active.
const (
	ProgressExtract = 10
	ProgressScript  = 40
	ProgressAudio   = 80
	ProgressVideo   = 90
)

// ArticleFetcher retrieves readable article content for a URL.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (*scraper.Article, error)
}

// ScriptGenerator produces a two-host dialogue script from article text.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, title, articleText string) (string, error)
}

// SpeechSynthesizer renders one spoken line to an audio file.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, speaker, text, outputPath string) error
}

// DurationProber measures the playable length of an audio file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// VideoRenderer composes the final captioned video.
type VideoRenderer interface {
	Render(ctx context.Context, audioPath string, audioDuration float64, cues []timeline.Cue, outputPath string) error
}

// Stages bundles the four concrete handlers in execution order.
type Stages struct {
	Extract *Extract
	Script  *Script
	Audio   *Audio
	Video   *Video
}

// Ordered returns the handlers in pipeline order.
func (s Stages) Ordered() []stage.Handler {
	return []stage.Handler{s.Extract, s.Script, s.Audio, s.Video}
}

// NewStages wires the default collaborators for daemon use.
func NewStages(cfg *config.Config, store *queue.Store, logger *slog.Logger) Stages {
	probe := proberFunc(func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, cfg.Render.FFprobeBinary, path)
	})
	return Stages{
		Extract: NewExtract(cfg, store, scraper.New(cfg), componentLogger(logger, "extract")),
		Script: NewScript(cfg, store, llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}), componentLogger(logger, "script")),
		Audio: NewAudio(cfg, store, tts.New(cfg), probe, componentLogger(logger, "audio")),
		Video: NewVideo(cfg, store, render.New(cfg), probe, componentLogger(logger, "video")),
	}
}

type proberFunc func(ctx context.Context, path string) (float64, error)

func (f proberFunc) Duration(ctx context.Context, path string) (float64, error) {
	return f(ctx, path)
}

func componentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return logging.NewNop()
	}
	return logging.NewComponentLogger(logger, component)
}

// prepare records a stage's progress checkpoint and step label before work
// begins.
func prepare(ctx context.Context, store *queue.Store, task *queue.Task, progress int, step string) error {
	if err := store.SetProgress(ctx, task.ID, progress, step, step); err != nil {
		return err
	}
	task.Progress = progress
	task.CurrentStep = step
	return nil
}
