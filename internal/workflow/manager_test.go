package workflow

import (
	"context"
	"os"
	"testing"
	"time"

	"blogcast/internal/config"
	"blogcast/internal/pipeline"
	"blogcast/internal/queue"
	"blogcast/internal/services"
	"blogcast/internal/services/scraper"
	"blogcast/internal/testsupport"
	"blogcast/internal/timeline"
)

type stubFetcher struct {
	article *scraper.Article
	err     error
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (*scraper.Article, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.article, nil
}

type stubGenerator struct {
	script string
}

func (s *stubGenerator) GenerateScript(ctx context.Context, title, articleText string) (string, error) {
	return s.script, nil
}

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(ctx context.Context, speaker, text, outputPath string) error {
	return os.WriteFile(outputPath, []byte("ID3"+text), 0o644)
}

type stubProber struct{}

func (stubProber) Duration(ctx context.Context, path string) (float64, error) {
	return 2.0, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, audioPath string, audioDuration float64, cues []timeline.Cue, outputPath string) error {
	return os.WriteFile(outputPath, []byte("video"), 0o644)
}

type panicSynthesizer struct{}

func (panicSynthesizer) Synthesize(ctx context.Context, speaker, text, outputPath string) error {
	panic("synthesizer exploded")
}

type testEnv struct {
	cfg   *config.Config
	store *queue.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return &testEnv{cfg: cfg, store: store}
}

func newStages(t *testing.T, env *testEnv, fetcher pipeline.ArticleFetcher, synth pipeline.SpeechSynthesizer) pipeline.Stages {
	t.Helper()
	return pipeline.Stages{
		Extract: pipeline.NewExtract(env.cfg, env.store, fetcher, nil),
		Script:  pipeline.NewScript(env.cfg, env.store, &stubGenerator{script: "Host A: Welcome.\nHost B: Glad to be here."}, nil),
		Audio:   pipeline.NewAudio(env.cfg, env.store, synth, stubProber{}, nil),
		Video:   pipeline.NewVideo(env.cfg, env.store, stubRenderer{}, stubProber{}, nil),
	}
}

func waitForStatus(t *testing.T, store *queue.Store, taskID string, want queue.Status) *queue.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := store.GetByID(context.Background(), taskID)
		if err != nil {
			t.Fatalf("get task: %v", err)
		}
		if task != nil && task.Status == want {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached status %s", taskID, want)
	return nil
}

func TestManagerRunsTaskToCompletion(t *testing.T) {
	env := newTestEnv(t)
	fetcher := &stubFetcher{article: &scraper.Article{Title: "On Testing", Text: "Body text."}}
	manager := NewManager(env.cfg, env.store, newStages(t, env, fetcher, stubSynthesizer{}), nil)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer manager.Stop()

	task := testsupport.NewTask(t, env.store, "https://example.com/post")
	if err := manager.Launch(task.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}

	done := waitForStatus(t, env.store, task.ID, queue.StatusCompleted)
	if done.Progress != 100 {
		t.Fatalf("progress = %d, want 100", done.Progress)
	}
	if done.CurrentStep != "Completed" {
		t.Fatalf("current step = %q", done.CurrentStep)
	}
	if done.Script == "" || done.AudioFile == "" || done.VideoFile == "" {
		t.Fatalf("missing artifacts: %+v", done)
	}
	if _, err := os.Stat(done.VideoFile); err != nil {
		t.Fatalf("video file missing: %v", err)
	}
}

func TestManagerRecordsStageFailure(t *testing.T) {
	env := newTestEnv(t)
	fetcher := &stubFetcher{err: services.Wrap(services.ErrFetch, "scraper", "fetch", "connection refused", nil)}
	manager := NewManager(env.cfg, env.store, newStages(t, env, fetcher, stubSynthesizer{}), nil)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer manager.Stop()

	task := testsupport.NewTask(t, env.store, "https://example.com/post")
	if err := manager.Launch(task.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}

	failed := waitForStatus(t, env.store, task.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("error message not recorded")
	}
	if failed.CurrentStep != "Failed" {
		t.Fatalf("current step = %q", failed.CurrentStep)
	}
	if manager.LastError() == nil {
		t.Fatal("last error not recorded")
	}
}

func TestManagerRecoversStagePanic(t *testing.T) {
	env := newTestEnv(t)
	fetcher := &stubFetcher{article: &scraper.Article{Title: "On Testing", Text: "Body text."}}
	manager := NewManager(env.cfg, env.store, newStages(t, env, fetcher, panicSynthesizer{}), nil)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer manager.Stop()

	task := testsupport.NewTask(t, env.store, "https://example.com/post")
	if err := manager.Launch(task.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}

	failed := waitForStatus(t, env.store, task.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("panic not converted to failure message")
	}
}

func TestManagerLaunchRejectsClaimedTask(t *testing.T) {
	env := newTestEnv(t)
	fetcher := &stubFetcher{article: &scraper.Article{Title: "T", Text: "Body."}}
	manager := NewManager(env.cfg, env.store, newStages(t, env, fetcher, stubSynthesizer{}), nil)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer manager.Stop()

	task := testsupport.NewTask(t, env.store, "https://example.com/post")
	claimed, err := env.store.ClaimPending(context.Background(), task.ID)
	if err != nil || !claimed {
		t.Fatalf("claim: %v %v", claimed, err)
	}

	if err := manager.Launch(task.ID); err == nil {
		t.Fatal("expected launch of claimed task to fail")
	}
}

func TestManagerLaunchRequiresStart(t *testing.T) {
	env := newTestEnv(t)
	fetcher := &stubFetcher{article: &scraper.Article{Title: "T", Text: "Body."}}
	manager := NewManager(env.cfg, env.store, newStages(t, env, fetcher, stubSynthesizer{}), nil)

	task := testsupport.NewTask(t, env.store, "https://example.com/post")
	if err := manager.Launch(task.ID); err == nil {
		t.Fatal("expected launch before start to fail")
	}
}

func TestManagerStopWaitsForInFlight(t *testing.T) {
	env := newTestEnv(t)
	fetcher := &stubFetcher{article: &scraper.Article{Title: "T", Text: "Body."}}
	manager := NewManager(env.cfg, env.store, newStages(t, env, fetcher, stubSynthesizer{}), nil)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	task := testsupport.NewTask(t, env.store, "https://example.com/post")
	if err := manager.Launch(task.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}
	manager.Stop()

	stored, err := env.store.GetByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !stored.Status.IsTerminal() {
		t.Fatalf("status after stop = %s, want terminal", stored.Status)
	}
	if manager.Running() {
		t.Fatal("manager still reports running")
	}
}

func TestManagerHealthReportsEveryStage(t *testing.T) {
	env := newTestEnv(t)
	fetcher := &stubFetcher{article: &scraper.Article{Title: "T", Text: "Body."}}
	manager := NewManager(env.cfg, env.store, newStages(t, env, fetcher, stubSynthesizer{}), nil)

	health := manager.Health(context.Background())
	if len(health) != 4 {
		t.Fatalf("health entries = %d, want 4", len(health))
	}
	for _, h := range health {
		if h.Name == "" {
			t.Fatalf("unnamed health entry: %+v", h)
		}
	}
}
