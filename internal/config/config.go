package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "INTERVIEWCOACH_"

// ErrInvalidConfig wraps every validation failure of Load.
var ErrInvalidConfig = errors.New("invalid config")

// Config stores runtime configuration for the interview client.
type Config struct {
	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`

	API       APIConfig       `koanf:"api"`
	Auth      AuthConfig      `koanf:"auth"`
	Interview InterviewConfig `koanf:"interview"`
	Capture   CaptureConfig   `koanf:"capture"`
	Audio     AudioConfig     `koanf:"audio"`
	Deepgram  DeepgramConfig  `koanf:"deepgram"`
	Speech    SpeechConfig    `koanf:"speech"`
	Journal   JournalConfig   `koanf:"journal"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type AuthConfig struct {
	CredentialsPath string `koanf:"credentials_path"`
}

type InterviewConfig struct {
	Mode                 string        `koanf:"mode"`
	TurnBudget           time.Duration `koanf:"turn_budget"`
	PaywallRedirectDelay time.Duration `koanf:"paywall_redirect_delay"`
	Persona              string        `koanf:"persona"`
	Language             string        `koanf:"language"`
}

type CaptureConfig struct {
	// Mode is one of auto, streaming, upload, off.
	Mode                 string        `koanf:"mode"`
	ForceUploadPlatforms []string      `koanf:"force_upload_platforms"`
	StreamingGrace       time.Duration `koanf:"streaming_grace"`
	ChunkSize            int           `koanf:"chunk_size"`
	RulesPath            string        `koanf:"rules_path"`
	RuleIterationLimit   int           `koanf:"rule_iteration_limit"`
}

type AudioConfig struct {
	RecorderCommand string `koanf:"recorder_command"`
	InputFormat     string `koanf:"input_format"`
	InputDevice     string `koanf:"input_device"`
	SampleRate      int    `koanf:"sample_rate"`
	Channels        int    `koanf:"channels"`
}

type DeepgramConfig struct {
	APIKey      string `koanf:"api_key"`
	APIBaseURL  string `koanf:"api_base_url"`
	Model       string `koanf:"model"`
	SmartFormat bool   `koanf:"smart_format"`
}

type SpeechConfig struct {
	Enabled bool   `koanf:"enabled"`
	Command string `koanf:"command"`
}

type JournalConfig struct {
	Path string `koanf:"path"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	configDir := userDir(os.UserConfigDir, ".config")
	dataDir := userDir(os.UserCacheDir, ".cache")

	return Config{
		LogLevel: "info",
		API: APIConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: 60 * time.Second,
		},
		Auth: AuthConfig{
			CredentialsPath: filepath.Join(configDir, "interviewcoach", "credentials.yaml"),
		},
		Interview: InterviewConfig{
			Mode:                 "normal",
			TurnBudget:           120 * time.Second,
			PaywallRedirectDelay: 1800 * time.Millisecond,
			Persona:              "priya",
			Language:             "English",
		},
		Capture: CaptureConfig{
			Mode:                 "auto",
			ForceUploadPlatforms: []string{"android"},
			StreamingGrace:       450 * time.Millisecond,
			ChunkSize:            4096,
			RulesPath:            filepath.Join(configDir, "interviewcoach", "cleanup.yaml"),
			RuleIterationLimit:   30,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      16000,
			Channels:        1,
		},
		Deepgram: DeepgramConfig{
			APIBaseURL:  "https://api.deepgram.com/v1",
			Model:       "nova-2",
			SmartFormat: true,
		},
		Speech: SpeechConfig{
			Enabled: true,
			Command: "espeak-ng",
		},
		Journal: JournalConfig{
			Path: filepath.Join(dataDir, "interviewcoach", "journal.db"),
		},
	}
}

// Load layers defaults, an optional .env file, an optional YAML file and
// INTERVIEWCOACH_* environment variables, in that order of precedence.
// Nested keys use a double underscore: INTERVIEWCOACH_API__BASE_URL.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	k := koanf.New(".")

	path = firstNonEmpty(path, os.Getenv(envPrefix+"CONFIG"))
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %q: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.Deepgram.APIKey = firstNonEmpty(cfg.Deepgram.APIKey, os.Getenv("DEEPGRAM_API_KEY"))
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	defaults := Default()

	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = defaults.Audio.SampleRate
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = defaults.Audio.Channels
	}
	if c.Capture.ChunkSize < 256 {
		c.Capture.ChunkSize = defaults.Capture.ChunkSize
	}
	if c.Capture.StreamingGrace < 0 {
		c.Capture.StreamingGrace = defaults.Capture.StreamingGrace
	}
	if c.Capture.RuleIterationLimit <= 0 {
		c.Capture.RuleIterationLimit = defaults.Capture.RuleIterationLimit
	}
	if c.Interview.TurnBudget <= 0 {
		c.Interview.TurnBudget = defaults.Interview.TurnBudget
	}
	if c.Interview.PaywallRedirectDelay < 0 {
		c.Interview.PaywallRedirectDelay = defaults.Interview.PaywallRedirectDelay
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = defaults.API.Timeout
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.Capture.Mode = strings.ToLower(strings.TrimSpace(c.Capture.Mode))
	if c.Capture.Mode == "" {
		c.Capture.Mode = "auto"
	}
}

func (c Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url must not be empty", ErrInvalidConfig)
	}
	switch c.Capture.Mode {
	case "auto", "streaming", "upload", "off":
	default:
		return fmt.Errorf("%w: capture.mode %q is not one of auto, streaming, upload, off", ErrInvalidConfig, c.Capture.Mode)
	}
	return nil
}

func userDir(lookup func() (string, error), homeFallback string) string {
	if dir, err := lookup(); err == nil && dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, homeFallback)
	}
	return "."
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
