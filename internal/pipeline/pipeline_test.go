package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blogcast/internal/dialogue"
	"blogcast/internal/logging"
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
	err    error
	gotLen int
}

func (s *stubGenerator) GenerateScript(ctx context.Context, title, articleText string) (string, error) {
	s.gotLen = len(articleText)
	if s.err != nil {
		return "", s.err
	}
	return s.script, nil
}

type stubSynthesizer struct {
	failTexts map[string]bool
	calls     int
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, speaker, text, outputPath string) error {
	s.calls++
	if s.failTexts[text] {
		return services.Wrap(services.ErrSynthesis, "tts", "synthesize", "stub failure", nil)
	}
	return os.WriteFile(outputPath, []byte("ID3"+text), 0o644)
}

type stubProber struct {
	duration float64
	err      error
}

func (s *stubProber) Duration(ctx context.Context, path string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.duration, nil
}

type stubRenderer struct {
	gotAudio    string
	gotDuration float64
	gotCues     []timeline.Cue
	err         error
}

func (s *stubRenderer) Render(ctx context.Context, audioPath string, audioDuration float64, cues []timeline.Cue, outputPath string) error {
	s.gotAudio = audioPath
	s.gotDuration = audioDuration
	s.gotCues = cues
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(outputPath, []byte("video"), 0o644)
}

func TestExtractPersistsArticle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "https://example.com/post")

	fetcher := &stubFetcher{article: &scraper.Article{
		URL:   task.URL,
		Title: "On Testing",
		Text:  "Body text of the article.",
	}}
	stage := NewExtract(cfg, store, fetcher, nil)
	ctx := context.Background()

	if err := stage.Prepare(ctx, task); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := stage.Execute(ctx, task); err != nil {
		t.Fatalf("execute: %v", err)
	}

	stored, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if stored.Title != "On Testing" {
		t.Fatalf("title = %q", stored.Title)
	}
	if stored.ArticleText != "Body text of the article." {
		t.Fatalf("article text = %q", stored.ArticleText)
	}
	if stored.Progress != ProgressExtract {
		t.Fatalf("progress = %d, want %d", stored.Progress, ProgressExtract)
	}
	if stored.CurrentStep != "Extracting article" {
		t.Fatalf("current step = %q", stored.CurrentStep)
	}
}

func TestExtractPropagatesFetchError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "https://example.com/missing")

	fetcher := &stubFetcher{err: services.Wrap(services.ErrFetch, "scraper", "fetch", "404", nil)}
	stage := NewExtract(cfg, store, fetcher, nil)

	err := stage.Execute(context.Background(), task)
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestScriptTruncatesAndPersists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scraper.MaxContentBytes = 100
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "https://example.com/post")
	task.Title = "On Testing"
	task.ArticleText = strings.Repeat("words and more words ", 50)

	gen := &stubGenerator{script: "Host A: Welcome.\nHost B: Thanks."}
	stage := NewScript(cfg, store, gen, nil)
	ctx := context.Background()

	if err := stage.Prepare(ctx, task); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := stage.Execute(ctx, task); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gen.gotLen > 100 {
		t.Fatalf("article text not truncated: %d bytes", gen.gotLen)
	}

	stored, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if stored.Script != gen.script {
		t.Fatalf("script = %q", stored.Script)
	}
	if stored.CurrentStep != "Generating script" {
		t.Fatalf("current step = %q", stored.CurrentStep)
	}
}

func TestScriptRejectsEmptyInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	noText := testsupport.NewTask(t, store, "https://example.com/a")
	stage := NewScript(cfg, store, &stubGenerator{script: "Host A: Hi."}, nil)
	if err := stage.Execute(ctx, noText); !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error for empty article, got %v", err)
	}

	emptyScript := testsupport.NewTask(t, store, "https://example.com/b")
	emptyScript.ArticleText = "Some article."
	stage = NewScript(cfg, store, &stubGenerator{script: "   \n"}, nil)
	if err := stage.Execute(ctx, emptyScript); !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error for empty script, got %v", err)
	}
}

func TestAudioSkipsFailedLines(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "https://example.com/post")
	task.Script = "Host A: First line.\nHost B: Second line.\nHost A: Third line."

	synth := &stubSynthesizer{failTexts: map[string]bool{"Second line.": true}}
	stage := NewAudio(cfg, store, synth, &stubProber{duration: 2.5}, nil)
	ctx := context.Background()

	if err := stage.Execute(ctx, task); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if synth.calls != 3 {
		t.Fatalf("synthesize calls = %d, want 3", synth.calls)
	}

	stored, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	var cues []timeline.Cue
	if err := json.Unmarshal([]byte(stored.TimelineJSON), &cues); err != nil {
		t.Fatalf("decode timeline: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("cues = %d, want 2", len(cues))
	}
	if cues[0].Text != "First line." || cues[1].Text != "Third line." {
		t.Fatalf("unexpected cue texts: %q, %q", cues[0].Text, cues[1].Text)
	}
	if cues[1].Start != cues[0].End {
		t.Fatalf("cues not back to back: %v", cues)
	}

	if stored.AudioFile == "" {
		t.Fatal("audio file not recorded")
	}
	data, err := os.ReadFile(stored.AudioFile)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if got := string(data); got != "ID3First line.ID3Third line." {
		t.Fatalf("concatenated audio = %q", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.StagingDir(), task.ID)); !os.IsNotExist(err) {
		t.Fatalf("staging dir not cleaned up: %v", err)
	}
}

func TestAudioFailsWhenNoLineSynthesizes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "https://example.com/post")
	task.Script = "Host A: Only line."

	synth := &stubSynthesizer{failTexts: map[string]bool{"Only line.": true}}
	stage := NewAudio(cfg, store, synth, &stubProber{duration: 2.0}, nil)

	err := stage.Execute(context.Background(), task)
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
}

func TestConcatenateSkipsUncopiableClip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stage := NewAudio(cfg, store, &stubSynthesizer{}, &stubProber{duration: 1.0}, nil)

	dir := t.TempDir()
	first := filepath.Join(dir, "line_000.mp3")
	broken := filepath.Join(dir, "line_001.mp3")
	last := filepath.Join(dir, "line_002.mp3")
	if err := os.WriteFile(first, []byte("ID3First."), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	if err := os.WriteFile(last, []byte("ID3Last."), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	// A directory opens fine but fails on read, exercising the copy path.
	if err := os.Mkdir(broken, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	output := filepath.Join(dir, "podcast.mp3")
	if err := stage.concatenate([]string{first, broken, last}, output, logging.NewNop()); err != nil {
		t.Fatalf("concatenate: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "ID3First.ID3Last." {
		t.Fatalf("unexpected output bytes: %q", data)
	}
}

func TestAudioRejectsEmptyScript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "https://example.com/post")

	stage := NewAudio(cfg, store, &stubSynthesizer{}, &stubProber{duration: 1.0}, nil)
	err := stage.Execute(context.Background(), task)
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
}

func TestVideoUsesPersistedTimeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "https://example.com/post")

	audioPath := filepath.Join(cfg.MediaDir, fmt.Sprintf("podcast_%s.mp3", task.ID))
	testsupport.WriteFile(t, audioPath, 64)
	task.AudioFile = audioPath

	cues := []timeline.Cue{
		{Start: 0, End: 2.5, Text: "First line.", Speaker: dialogue.SpeakerHostA},
		{Start: 2.5, End: 5.0, Text: "Second line.", Speaker: dialogue.SpeakerHostB},
	}
	encoded, err := json.Marshal(cues)
	if err != nil {
		t.Fatalf("encode cues: %v", err)
	}
	task.TimelineJSON = string(encoded)

	renderer := &stubRenderer{}
	stage := NewVideo(cfg, store, renderer, &stubProber{duration: 5.0}, nil)
	ctx := context.Background()

	if err := stage.Prepare(ctx, task); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := stage.Execute(ctx, task); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if renderer.gotAudio != audioPath {
		t.Fatalf("renderer audio = %q", renderer.gotAudio)
	}
	if renderer.gotDuration != 5.0 {
		t.Fatalf("renderer duration = %v", renderer.gotDuration)
	}
	if len(renderer.gotCues) != 2 || renderer.gotCues[1].Text != "Second line." {
		t.Fatalf("renderer cues = %v", renderer.gotCues)
	}

	stored, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	want := filepath.Join(cfg.MediaDir, fmt.Sprintf("podcast_%s.mp4", task.ID))
	if stored.VideoFile != want {
		t.Fatalf("video file = %q, want %q", stored.VideoFile, want)
	}
	if stored.CurrentStep != "Rendering video" {
		t.Fatalf("current step = %q", stored.CurrentStep)
	}
}

func TestVideoEstimatesTimelineFromScript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "https://example.com/post")

	audioPath := filepath.Join(cfg.MediaDir, "episode.mp3")
	testsupport.WriteFile(t, audioPath, 64)
	task.AudioFile = audioPath
	task.Script = "Host A: Welcome to the show.\nHost B: Glad to be here."

	renderer := &stubRenderer{}
	stage := NewVideo(cfg, store, renderer, &stubProber{duration: 30.0}, nil)

	if err := stage.Execute(context.Background(), task); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(renderer.gotCues) != 2 {
		t.Fatalf("estimated cues = %d, want 2", len(renderer.gotCues))
	}
	if renderer.gotCues[0].Speaker != dialogue.SpeakerHostA {
		t.Fatalf("first speaker = %q", renderer.gotCues[0].Speaker)
	}
}

func TestVideoRequiresAudioFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "https://example.com/post")

	stage := NewVideo(cfg, store, &stubRenderer{}, &stubProber{duration: 5.0}, nil)
	err := stage.Execute(context.Background(), task)
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected render error, got %v", err)
	}
}

func TestStagesProgressIsNonDecreasing(t *testing.T) {
	checkpoints := []int{ProgressExtract, ProgressScript, ProgressAudio, ProgressVideo}
	for i := 1; i < len(checkpoints); i++ {
		if checkpoints[i] <= checkpoints[i-1] {
			t.Fatalf("checkpoint %d (%d) not above %d", i, checkpoints[i], checkpoints[i-1])
		}
	}
}
