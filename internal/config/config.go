package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Audio      AudioConfig      `yaml:"audio"`
	Split      SplitConfig      `yaml:"split"`
	Output     OutputConfig     `yaml:"output"`
	LogLevel   string           `yaml:"log_level"`
	LogFormat  string           `yaml:"log_format"` // "text" or "json"
}

// TranscribeConfig holds speech-to-text settings.
type TranscribeConfig struct {
	Backend       string `yaml:"backend"`
	ModelPath     string `yaml:"model_path"`
	Language      string `yaml:"language"`
	Threads       uint   `yaml:"threads"`
	InitialPrompt string `yaml:"initial_prompt"`
}

// AudioConfig holds decoding and clip export settings.
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	ClipFormat string `yaml:"clip_format"` // "wav" or "mp3"
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// SplitConfig holds the silence detection parameters, in dBFS and milliseconds.
type SplitConfig struct {
	SilenceThreshDB float64 `yaml:"silence_thresh_db"`
	MinSilenceMS    int     `yaml:"min_silence_ms"`
	KeepSilenceMS   int     `yaml:"keep_silence_ms"`
	PaddingMS       int     `yaml:"padding_ms"`
	SeekStepMS      int     `yaml:"seek_step_ms"`
}

// OutputConfig holds settings for the generated page.
type OutputConfig struct {
	Dir   string `yaml:"dir"`
	Title string `yaml:"title"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "phrasedeck")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory whisper models are downloaded to.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(home, ".local", "share", "phrasedeck", "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Transcribe: TranscribeConfig{
			Backend:   "whisper",
			ModelPath: filepath.Join(DefaultModelsDir(), "ggml-large-v3.bin"),
			Language:  "zh",
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			ClipFormat: "wav",
			FFmpegPath: "ffmpeg",
		},
		Split: SplitConfig{
			SilenceThreshDB: -40,
			MinSilenceMS:    500,
			KeepSilenceMS:   100,
			PaddingMS:       100,
			SeekStepMS:      1,
		},
		Output: OutputConfig{
			Dir:   ".",
			Title: "Audio Player",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Transcribe.ModelPath = ExpandTilde(cfg.Transcribe.ModelPath)
	cfg.Output.Dir = ExpandTilde(cfg.Output.Dir)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Transcribe.Backend {
	case "whisper", "":
		if c.Transcribe.ModelPath == "" {
			return fmt.Errorf("transcribe.model_path must not be empty")
		}
	default:
		return fmt.Errorf("transcribe.backend must be \"whisper\", got %q", c.Transcribe.Backend)
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	switch c.Audio.ClipFormat {
	case "wav", "mp3":
	default:
		return fmt.Errorf("audio.clip_format must be \"wav\" or \"mp3\", got %q", c.Audio.ClipFormat)
	}

	if c.Split.SilenceThreshDB >= 0 {
		return fmt.Errorf("split.silence_thresh_db must be < 0, got %g", c.Split.SilenceThreshDB)
	}
	if c.Split.MinSilenceMS <= 0 {
		return fmt.Errorf("split.min_silence_ms must be > 0")
	}
	if c.Split.SeekStepMS <= 0 {
		return fmt.Errorf("split.seek_step_ms must be > 0")
	}
	if c.Split.KeepSilenceMS < 0 {
		return fmt.Errorf("split.keep_silence_ms must be >= 0")
	}
	if c.Split.PaddingMS < 0 {
		return fmt.Errorf("split.padding_ms must be >= 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat)
	}

	return nil
}

// WriteDefault writes the default config to DefaultConfigPath. If a file
// already exists there it is left untouched and ("", nil) is returned.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}
	if err := WriteTo(path, Default()); err != nil {
		return "", err
	}
	return path, nil
}

// WriteTo marshals cfg to path with a header comment, creating parent
// directories as needed.
func WriteTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	header := "# phrasedeck configuration\n# See `phrasedeck config show` for the effective values.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ParseLogLevel maps a config log level to a slog.Level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ExpandTilde replaces a leading "~" or "~/" with the user's home
// directory. Other forms such as "~user" are returned unchanged.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
