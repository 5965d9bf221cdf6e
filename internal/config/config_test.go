package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"blogcast/internal/config"
)

func TestLoadDefaultConfigUsesEnvAPIKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("BLOGCAST_LLM_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantMedia := filepath.Join(tempHome, ".local", "share", "blogcast", "media")
	if cfg.MediaDir != wantMedia {
		t.Fatalf("unexpected media dir: got %q want %q", cfg.MediaDir, wantMedia)
	}
	if cfg.APIBind != "127.0.0.1:8764" {
		t.Fatalf("unexpected api bind: %q", cfg.APIBind)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.TTS.VoiceHostA != config.Default().TTS.VoiceHostA {
		t.Fatalf("unexpected host A voice: %q", cfg.TTS.VoiceHostA)
	}
	if cfg.Workflow.StageTimeoutSeconds != config.Default().Workflow.StageTimeoutSeconds {
		t.Fatalf("unexpected stage timeout: %d", cfg.Workflow.StageTimeoutSeconds)
	}
	if cfg.StagingDir() != filepath.Join(wantMedia, "staging") {
		t.Fatalf("unexpected staging dir: %q", cfg.StagingDir())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.MediaDir, cfg.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "blogcast.toml")

	type payload struct {
		LLM struct {
			APIKey string `toml:"api_key"`
			Model  string `toml:"model"`
		} `toml:"llm"`
		Render struct {
			Width  int `toml:"width"`
			Height int `toml:"height"`
		} `toml:"render"`
	}
	custom := payload{}
	custom.LLM.APIKey = "abc123"
	custom.LLM.Model = "example/custom-model"
	custom.Render.Width = 1280
	custom.Render.Height = 720

	encoded, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, encoded, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.LLM.APIKey != "abc123" {
		t.Fatalf("unexpected api key: %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "example/custom-model" {
		t.Fatalf("unexpected model: %q", cfg.LLM.Model)
	}
	if cfg.Render.Width != 1280 || cfg.Render.Height != 720 {
		t.Fatalf("unexpected render size: %dx%d", cfg.Render.Width, cfg.Render.Height)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Render.FPS != config.Default().Render.FPS {
		t.Fatalf("unexpected fps: %d", cfg.Render.FPS)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantSub string
	}{
		{
			name:    "zero render width",
			mutate:  func(cfg *config.Config) { cfg.Render.Width = 0 },
			wantSub: "render.width",
		},
		{
			name:    "negative intro",
			mutate:  func(cfg *config.Config) { cfg.Render.IntroSeconds = -1 },
			wantSub: "intro_seconds",
		},
		{
			name:    "bad logging format",
			mutate:  func(cfg *config.Config) { cfg.Logging.Format = "xml" },
			wantSub: "logging.format",
		},
		{
			name:    "bad logging level",
			mutate:  func(cfg *config.Config) { cfg.Logging.Level = "verbose" },
			wantSub: "logging.level",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q missing %q", err, tc.wantSub)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "config.toml")

	written, err := config.CreateSample(path)
	if err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if written != path {
		t.Fatalf("unexpected written path: %q", written)
	}

	cfg, _, exists, err := config.Load(written)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.TTS.Binary != "edge-tts" {
		t.Fatalf("unexpected tts binary: %q", cfg.TTS.Binary)
	}

	if _, err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}
