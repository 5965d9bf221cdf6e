package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"blogcast/internal/config"
	"blogcast/internal/logging"
	"blogcast/internal/queue"
	"blogcast/internal/services"
	"blogcast/internal/stage"
	"blogcast/internal/textutil"
)

// Script turns the extracted article into a two-host dialogue script.
type Script struct {
	cfg       *config.Config
	store     *queue.Store
	generator ScriptGenerator
	logger    *slog.Logger
}

// NewScript constructs the script generation stage.
func NewScript(cfg *config.Config, store *queue.Store, generator ScriptGenerator, logger *slog.Logger) *Script {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Script{cfg: cfg, store: store, generator: generator, logger: logger}
}

func (s *Script) Prepare(ctx context.Context, task *queue.Task) error {
	return prepare(ctx, s.store, task, ProgressScript, "Generating script")
}

func (s *Script) Execute(ctx context.Context, task *queue.Task) error {
	const stageName = "script"

	text := strings.TrimSpace(task.ArticleText)
	if text == "" {
		return services.Wrap(services.ErrGeneration, stageName, "generate", "no article text on task", nil)
	}
	text = textutil.Truncate(text, s.cfg.Scraper.MaxContentBytes)

	script, err := s.generator.GenerateScript(ctx, task.Title, text)
	if err != nil {
		return services.Wrap(services.ErrGeneration, stageName, "generate", "script generation failed", err)
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return services.Wrap(services.ErrGeneration, stageName, "generate", "model returned empty script", nil)
	}

	if err := s.store.SetScript(ctx, task.ID, script); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "persist script", "", err)
	}
	task.Script = script

	logging.WithContext(ctx, s.logger).Info("script generated",
		logging.Int("script_bytes", len(script)),
	)
	return nil
}

func (s *Script) HealthCheck(context.Context) stage.Health {
	if strings.TrimSpace(s.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy("script", "llm api key not configured")
	}
	return stage.Healthy("script")
}
