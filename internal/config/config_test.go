package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Transcribe.ModelPath == "" {
		t.Error("Transcribe.ModelPath should not be empty")
	}
	if cfg.Transcribe.Backend != "whisper" {
		t.Errorf("Transcribe.Backend = %q, want %q", cfg.Transcribe.Backend, "whisper")
	}
	if cfg.Transcribe.Language != "zh" {
		t.Errorf("Transcribe.Language = %q, want %q", cfg.Transcribe.Language, "zh")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ClipFormat != "wav" {
		t.Errorf("Audio.ClipFormat = %q, want %q", cfg.Audio.ClipFormat, "wav")
	}
	if cfg.Split.SilenceThreshDB != -40 {
		t.Errorf("Split.SilenceThreshDB = %g, want -40", cfg.Split.SilenceThreshDB)
	}
	if cfg.Split.MinSilenceMS != 500 {
		t.Errorf("Split.MinSilenceMS = %d, want 500", cfg.Split.MinSilenceMS)
	}
	if cfg.Split.PaddingMS != 100 {
		t.Errorf("Split.PaddingMS = %d, want 100", cfg.Split.PaddingMS)
	}
	if cfg.Split.KeepSilenceMS != 100 {
		t.Errorf("Split.KeepSilenceMS = %d, want 100", cfg.Split.KeepSilenceMS)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "text")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
transcribe:
  model_path: /tmp/test-model.bin
  language: ja
  threads: 4
audio:
  sample_rate: 44100
  clip_format: mp3
split:
  silence_thresh_db: -35
  min_silence_ms: 700
output:
  dir: /tmp/out
  title: Lesson 2
log_level: debug
log_format: json
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Transcribe.ModelPath != "/tmp/test-model.bin" {
		t.Errorf("Transcribe.ModelPath = %q, want %q", cfg.Transcribe.ModelPath, "/tmp/test-model.bin")
	}
	if cfg.Transcribe.Language != "ja" {
		t.Errorf("Transcribe.Language = %q, want %q", cfg.Transcribe.Language, "ja")
	}
	if cfg.Transcribe.Threads != 4 {
		t.Errorf("Transcribe.Threads = %d, want 4", cfg.Transcribe.Threads)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Audio.SampleRate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ClipFormat != "mp3" {
		t.Errorf("Audio.ClipFormat = %q, want %q", cfg.Audio.ClipFormat, "mp3")
	}
	if cfg.Split.SilenceThreshDB != -35 {
		t.Errorf("Split.SilenceThreshDB = %g, want -35", cfg.Split.SilenceThreshDB)
	}
	if cfg.Split.MinSilenceMS != 700 {
		t.Errorf("Split.MinSilenceMS = %d, want 700", cfg.Split.MinSilenceMS)
	}
	// Unset fields keep their defaults.
	if cfg.Split.PaddingMS != 100 {
		t.Errorf("Split.PaddingMS = %d, want default 100", cfg.Split.PaddingMS)
	}
	if cfg.Audio.FFmpegPath != "ffmpeg" {
		t.Errorf("Audio.FFmpegPath = %q, want default %q", cfg.Audio.FFmpegPath, "ffmpeg")
	}
	if cfg.Output.Dir != "/tmp/out" {
		t.Errorf("Output.Dir = %q, want %q", cfg.Output.Dir, "/tmp/out")
	}
	if cfg.Output.Title != "Lesson 2" {
		t.Errorf("Output.Title = %q, want %q", cfg.Output.Title, "Lesson 2")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "json")
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
transcribe:
  model_path: ~/models/test.bin
output:
  dir: ~/pages
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := filepath.Join(home, "models/test.bin")
	if cfg.Transcribe.ModelPath != expected {
		t.Errorf("Transcribe.ModelPath = %q, want %q", cfg.Transcribe.ModelPath, expected)
	}
	if cfg.Output.Dir != filepath.Join(home, "pages") {
		t.Errorf("Output.Dir = %q, want %q", cfg.Output.Dir, filepath.Join(home, "pages"))
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("split: [not, a, map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should return error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty model path",
			modify:  func(c *Config) { c.Transcribe.ModelPath = "" },
			wantErr: true,
		},
		{
			name:    "unknown backend",
			modify:  func(c *Config) { c.Transcribe.Backend = "parakeet" },
			wantErr: true,
		},
		{
			name:    "zero sample rate",
			modify:  func(c *Config) { c.Audio.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "invalid clip format",
			modify:  func(c *Config) { c.Audio.ClipFormat = "flac" },
			wantErr: true,
		},
		{
			name:    "mp3 clip format",
			modify:  func(c *Config) { c.Audio.ClipFormat = "mp3" },
			wantErr: false,
		},
		{
			name:    "non-negative silence threshold",
			modify:  func(c *Config) { c.Split.SilenceThreshDB = 0 },
			wantErr: true,
		},
		{
			name:    "zero min silence",
			modify:  func(c *Config) { c.Split.MinSilenceMS = 0 },
			wantErr: true,
		},
		{
			name:    "zero seek step",
			modify:  func(c *Config) { c.Split.SeekStepMS = 0 },
			wantErr: true,
		},
		{
			name:    "negative keep silence",
			modify:  func(c *Config) { c.Split.KeepSilenceMS = -1 },
			wantErr: true,
		},
		{
			name:    "negative padding",
			modify:  func(c *Config) { c.Split.PaddingMS = -10 },
			wantErr: true,
		},
		{
			name:    "zero padding",
			modify:  func(c *Config) { c.Split.PaddingMS = 0 },
			wantErr: false,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "phrasedeck", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# phrasedeck") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Split.MinSilenceMS != 500 {
		t.Errorf("written config Split.MinSilenceMS = %d, want 500", cfg.Split.MinSilenceMS)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("written config Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "phrasedeck")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("transcribe:\n  model_path: /custom/model.bin\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestExpandTilde(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	tests := []struct {
		in   string
		want string
	}{
		{"~", tmpHome},
		{"~/models/ggml-base.bin", filepath.Join(tmpHome, "models", "ggml-base.bin")},
		{"~foo/models", "~foo/models"},
		{"~~", "~~"},
		{"/abs/~/path", "/abs/~/path"},
		{"relative", "relative"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandTilde(tt.in); got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultModelsDir(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	want := filepath.Join(tmpHome, ".local", "share", "phrasedeck", "models")
	if got := DefaultModelsDir(); got != want {
		t.Errorf("DefaultModelsDir() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(Default().Transcribe.ModelPath, want) {
		t.Errorf("default model path %q should live under %q", Default().Transcribe.ModelPath, want)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
