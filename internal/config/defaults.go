package config

const (
	defaultMediaDir               = "~/.local/share/blogcast/media"
	defaultLogDir                 = "~/.local/share/blogcast/logs"
	defaultAPIBind                = "127.0.0.1:8764"
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds      = 60
	defaultTTSBinary              = "edge-tts"
	defaultVoiceHostA             = "en-IN-RehaanNeural"
	defaultVoiceHostB             = "en-IN-KavyaNeural"
	defaultTTSTimeoutSeconds      = 60
	defaultRenderWidth            = 1920
	defaultRenderHeight           = 1080
	defaultRenderFPS              = 30
	defaultIntroSeconds           = 2.0
	defaultOutroSeconds           = 2.0
	defaultScraperUserAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	defaultScraperTimeoutSeconds  = 30
	defaultScraperMaxContentBytes = 10000
	defaultStageTimeoutSeconds    = 600
	defaultMaxConcurrent          = 2
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir: defaultMediaDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: TTS{
			Binary:         defaultTTSBinary,
			VoiceHostA:     defaultVoiceHostA,
			VoiceHostB:     defaultVoiceHostB,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Render: Render{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			Width:         defaultRenderWidth,
			Height:        defaultRenderHeight,
			FPS:           defaultRenderFPS,
			IntroSeconds:  defaultIntroSeconds,
			OutroSeconds:  defaultOutroSeconds,
		},
		Scraper: Scraper{
			UserAgent:       defaultScraperUserAgent,
			TimeoutSeconds:  defaultScraperTimeoutSeconds,
			MaxContentBytes: defaultScraperMaxContentBytes,
		},
		Workflow: Workflow{
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
			MaxConcurrent:       defaultMaxConcurrent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
