// Package tts synthesizes speech per script line by shelling out to the
// edge-tts command line tool.
package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"blogcast/internal/config"
	"blogcast/internal/dialogue"
	"blogcast/internal/services"
)

// Synthesizer converts text lines into speech clips, one voice per host.
type Synthesizer struct {
	binary    string
	voiceByID map[string]string
	fallback  string
	timeout   time.Duration
}

// runCommand is swapped out by tests.
var runCommand = func(cmd *exec.Cmd) ([]byte, error) {
	return cmd.CombinedOutput()
}

// New constructs a Synthesizer from configuration.
func New(cfg *config.Config) *Synthesizer {
	return &Synthesizer{
		binary: cfg.TTS.Binary,
		voiceByID: map[string]string{
			dialogue.SpeakerHostA: cfg.TTS.VoiceHostA,
			dialogue.SpeakerHostB: cfg.TTS.VoiceHostB,
		},
		fallback: cfg.TTS.VoiceHostA,
		timeout:  time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
	}
}

// VoiceFor maps a speaker tag to its configured voice. Unknown speakers get
// the first host's voice.
func (s *Synthesizer) VoiceFor(speaker string) string {
	if voice, ok := s.voiceByID[speaker]; ok && voice != "" {
		return voice
	}
	return s.fallback
}

// Synthesize renders one spoken line to outputPath using the voice mapped
// to the speaker. The output file is removed when synthesis fails or
// produces nothing.
func (s *Synthesizer) Synthesize(ctx context.Context, speaker, text, outputPath string) error {
	const op = "synthesize"

	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrSynthesis, "audio", op, "empty line", nil)
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, s.binary,
		"--voice", s.VoiceFor(speaker),
		"--text", text,
		"--write-media", outputPath,
	)
	output, err := runCommand(cmd)
	if err != nil {
		_ = os.Remove(outputPath)
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return services.Wrap(services.ErrSynthesis, "audio", op, "edge-tts failed", err)
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		_ = os.Remove(outputPath)
		return services.Wrap(services.ErrSynthesis, "audio", op, "no audio produced", statErr)
	}
	return nil
}

// HealthCheck verifies the synthesis binary is resolvable on PATH.
func (s *Synthesizer) HealthCheck(context.Context) error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "health", "tts binary not found", err)
	}
	return nil
}
