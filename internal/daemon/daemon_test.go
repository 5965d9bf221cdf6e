package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"blogcast/internal/api"
	"blogcast/internal/config"
	"blogcast/internal/pipeline"
	"blogcast/internal/queue"
	"blogcast/internal/services/scraper"
	"blogcast/internal/testsupport"
	"blogcast/internal/timeline"
	"blogcast/internal/workflow"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) (*scraper.Article, error) {
	return &scraper.Article{URL: url, Title: "On Testing", Text: "Body text."}, nil
}

type stubGenerator struct{}

func (stubGenerator) GenerateScript(ctx context.Context, title, articleText string) (string, error) {
	return "Host A: Welcome.\nHost B: Glad to be here.", nil
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

func newTestDaemon(t *testing.T) (*Daemon, *config.Config, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages := pipeline.Stages{
		Extract: pipeline.NewExtract(cfg, store, stubFetcher{}, nil),
		Script:  pipeline.NewScript(cfg, store, stubGenerator{}, nil),
		Audio:   pipeline.NewAudio(cfg, store, stubSynthesizer{}, stubProber{}, nil),
		Video:   pipeline.NewVideo(cfg, store, stubRenderer{}, stubProber{}, nil),
	}
	manager := workflow.NewManager(cfg, store, stages, nil)
	d, err := New(cfg, store, manager, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, cfg, store
}

func startTestDaemon(t *testing.T, d *Daemon) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})
	return "http://" + d.Addr()
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestDaemonConvertEndToEnd(t *testing.T) {
	d, _, store := newTestDaemon(t)
	base := startTestDaemon(t, d)

	payload, _ := json.Marshal(api.ConvertRequest{URL: "https://example.com/post"})
	resp, err := http.Post(base+"/api/convert", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST convert: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("convert status = %d, want 202", resp.StatusCode)
	}
	var accepted api.ConvertResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode convert response: %v", err)
	}
	if accepted.TaskID == "" {
		t.Fatal("empty task id")
	}

	deadline := time.Now().Add(5 * time.Second)
	var status api.TaskStatus
	for {
		code := getJSON(t, base+"/api/tasks/"+accepted.TaskID, &status)
		if code != http.StatusOK {
			t.Fatalf("task status code = %d", code)
		}
		if status.Status == string(queue.StatusCompleted) {
			break
		}
		if status.Status == string(queue.StatusFailed) {
			t.Fatalf("conversion failed: %s", status.ErrorMessage)
		}
		if time.Now().After(deadline) {
			t.Fatalf("conversion never completed; last status %+v", status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if status.Progress != 100 || status.CurrentStep != "Completed" {
		t.Fatalf("terminal projection = %+v", status)
	}
	if status.Script == "" || status.AudioFile == "" || status.VideoFile == "" {
		t.Fatalf("missing artifacts in projection: %+v", status)
	}
	if len(status.Logs) == 0 {
		t.Fatal("expected progress logs in projection")
	}

	task, err := store.GetByID(context.Background(), accepted.TaskID)
	if err != nil || task == nil {
		t.Fatalf("load task: %v %v", task, err)
	}
	if task.Status != queue.StatusCompleted {
		t.Fatalf("stored status = %s", task.Status)
	}
}

func TestDaemonConvertRejectsBadURL(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	base := startTestDaemon(t, d)

	for _, body := range []string{`{}`, `{"url":"not a url"}`, `broken json`} {
		resp, err := http.Post(base+"/api/convert", "application/json", bytes.NewReader([]byte(body)))
		if err != nil {
			t.Fatalf("POST convert: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestDaemonTaskNotFound(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	base := startTestDaemon(t, d)

	if code := getJSON(t, base+"/api/tasks/does-not-exist", nil); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestDaemonListTasks(t *testing.T) {
	d, _, store := newTestDaemon(t)
	base := startTestDaemon(t, d)

	testsupport.NewTask(t, store, "https://example.com/a")
	testsupport.NewTask(t, store, "https://example.com/b")

	var list api.TaskListResponse
	if code := getJSON(t, base+"/api/tasks", &list); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(list.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(list.Tasks))
	}

	if code := getJSON(t, base+"/api/tasks?status=bogus", nil); code != http.StatusBadRequest {
		t.Fatalf("bogus filter status = %d, want 400", code)
	}
}

func TestDaemonStatusEndpoint(t *testing.T) {
	d, _, store := newTestDaemon(t)
	base := startTestDaemon(t, d)

	testsupport.NewTask(t, store, "https://example.com/a")

	var status api.DaemonStatus
	if code := getJSON(t, base+"/api/status", &status); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("daemon not reported running: %+v", status)
	}
	if status.Workflow.QueueStats["pending"] != 1 {
		t.Fatalf("queue stats = %v", status.Workflow.QueueStats)
	}
	if len(status.Workflow.StageHealth) != 4 {
		t.Fatalf("stage health entries = %d", len(status.Workflow.StageHealth))
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	d, cfg, store := newTestDaemon(t)
	startTestDaemon(t, d)

	stages := pipeline.Stages{
		Extract: pipeline.NewExtract(cfg, store, stubFetcher{}, nil),
		Script:  pipeline.NewScript(cfg, store, stubGenerator{}, nil),
		Audio:   pipeline.NewAudio(cfg, store, stubSynthesizer{}, stubProber{}, nil),
		Video:   pipeline.NewVideo(cfg, store, stubRenderer{}, stubProber{}, nil),
	}
	second, err := New(cfg, store, workflow.NewManager(cfg, store, stages, nil), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}

func TestDaemonFailsInterruptedTasksOnStart(t *testing.T) {
	d, _, store := newTestDaemon(t)

	task := testsupport.NewTask(t, store, "https://example.com/post")
	claimed, err := store.ClaimPending(context.Background(), task.ID)
	if err != nil || !claimed {
		t.Fatalf("claim: %v %v", claimed, err)
	}

	startTestDaemon(t, d)

	stored, err := store.GetByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if stored.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}
	if stored.ErrorMessage != queue.InterruptedReason {
		t.Fatalf("error message = %q", stored.ErrorMessage)
	}
}

func TestDaemonSweepsStaleStagingDirs(t *testing.T) {
	d, cfg, _ := newTestDaemon(t)
	d.sweepInterval = 25 * time.Millisecond
	d.sweepMaxAge = 100 * time.Millisecond

	startTestDaemon(t, d)

	staleDir := filepath.Join(cfg.StagingDir(), "00000000-dead-beef-0000-000000000000")
	if err := os.MkdirAll(staleDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(staleDir, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(staleDir); os.IsNotExist(err) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("stale staging directory was not swept")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
