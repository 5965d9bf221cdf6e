package pipeline

import (
	"context"
	"log/slog"

	"blogcast/internal/config"
	"blogcast/internal/logging"
	"blogcast/internal/queue"
	"blogcast/internal/services"
	"blogcast/internal/stage"
)

// Extract fetches the blog article and persists its title and text.
type Extract struct {
	cfg     *config.Config
	store   *queue.Store
	fetcher ArticleFetcher
	logger  *slog.Logger
}

// NewExtract constructs the extraction stage.
func NewExtract(cfg *config.Config, store *queue.Store, fetcher ArticleFetcher, logger *slog.Logger) *Extract {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extract{cfg: cfg, store: store, fetcher: fetcher, logger: logger}
}

func (e *Extract) Prepare(ctx context.Context, task *queue.Task) error {
	return prepare(ctx, e.store, task, ProgressExtract, "Extracting article")
}

func (e *Extract) Execute(ctx context.Context, task *queue.Task) error {
	article, err := e.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		return err
	}

	if err := e.store.SetTitle(ctx, task.ID, article.Title); err != nil {
		return services.Wrap(services.ErrTransient, "extract", "persist title", "", err)
	}
	if err := e.store.SetArticleText(ctx, task.ID, article.Text); err != nil {
		return services.Wrap(services.ErrTransient, "extract", "persist article text", "", err)
	}
	task.Title = article.Title
	task.ArticleText = article.Text

	logging.WithContext(ctx, e.logger).Info("article extracted",
		logging.String("title", article.Title),
		logging.Int("text_bytes", len(article.Text)),
	)
	return nil
}

func (e *Extract) HealthCheck(context.Context) stage.Health {
	if e.fetcher == nil {
		return stage.Unhealthy("extract", "no article fetcher configured")
	}
	return stage.Healthy("extract")
}
