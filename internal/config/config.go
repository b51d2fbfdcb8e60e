package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredential marks a fatal startup condition: the service cannot
// transcribe without an API key.
var ErrMissingCredential = errors.New("missing credential")

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Paths      PathsConfig      `yaml:"paths"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Transcode  TranscodeConfig  `yaml:"transcode"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

type PathsConfig struct {
	Uploads string `yaml:"uploads"`
	Outputs string `yaml:"outputs"`
	// Watch enables drop-folder ingestion when non-empty.
	Watch string `yaml:"watch"`
}

type OpenAIConfig struct {
	APIKey       string `yaml:"-"` // env only, never from file
	WhisperModel string `yaml:"whisper_model"`
	ChatModel    string `yaml:"chat_model"`
}

type SummarizerConfig struct {
	Backend      string `yaml:"backend"` // openai or gemini
	GeminiAPIKey string `yaml:"-"`       // env only
	GeminiModel  string `yaml:"gemini_model"`
}

type TranscodeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}

type PipelineConfig struct {
	LongRunningAfter time.Duration `yaml:"long_running_after"`
}

// Load reads the optional YAML config file, applies environment overrides,
// and validates. A missing file is not an error; env and defaults suffice.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// fall through to env + defaults
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" && c.Server.Addr == "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Server.MaxUploadMB = n
		}
	}
	if v := os.Getenv("UPLOADS_DIR"); v != "" {
		c.Paths.Uploads = v
	}
	if v := os.Getenv("OUTPUTS_DIR"); v != "" {
		c.Paths.Outputs = v
	}
	if v := os.Getenv("WATCH_DIR"); v != "" {
		c.Paths.Watch = v
	}
	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	c.Summarizer.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if v := os.Getenv("SUMMARIZER_BACKEND"); v != "" {
		c.Summarizer.Backend = v
	}
	if v := os.Getenv("FFMPEG_PATH"); v != "" {
		c.Transcode.FFmpegPath = v
	}
}

// Validate applies defaults and rejects configurations the service cannot
// start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 500
	}
	if c.Paths.Uploads == "" {
		c.Paths.Uploads = "uploads"
	}
	if c.Paths.Outputs == "" {
		c.Paths.Outputs = "outputs"
	}
	if c.OpenAI.WhisperModel == "" {
		c.OpenAI.WhisperModel = "whisper-1"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o"
	}
	if c.Summarizer.Backend == "" {
		c.Summarizer.Backend = "openai"
	}
	if c.Summarizer.GeminiModel == "" {
		c.Summarizer.GeminiModel = "gemini-2.5-flash"
	}
	if c.Pipeline.LongRunningAfter == 0 {
		c.Pipeline.LongRunningAfter = time.Minute
	}

	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrMissingCredential)
	}

	switch c.Summarizer.Backend {
	case "openai":
	case "gemini":
		if c.Summarizer.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown summarizer backend %q", c.Summarizer.Backend)
	}

	if c.Transcode.Enabled && c.Transcode.FFmpegPath == "" {
		return fmt.Errorf("transcode.ffmpeg_path is required when transcoding is enabled")
	}

	return nil
}
