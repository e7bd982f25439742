package transcribe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"

	"github.com/chaz8081/phrasedeck/internal/config"
)

// whisperModelPath resolves the path to a multilingual whisper model relative
// to the project root.
func whisperModelPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join("..", "..", "models", "ggml-base.bin")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("model not found at %s (run 'phrasedeck model download base' first): %v", path, err)
	}
	return path
}

func TestNewWhisperTranscriber(t *testing.T) {
	path := whisperModelPath(t)

	tr, err := NewWhisperTranscriber(path, WhisperOptions{Language: "zh"})
	if err != nil {
		t.Fatalf("NewWhisperTranscriber(%q) returned error: %v", path, err)
	}
	if tr == nil {
		t.Fatal("NewWhisperTranscriber returned nil without error")
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
}

func TestNewWhisperTranscriberBadPath(t *testing.T) {
	_, err := NewWhisperTranscriber("/nonexistent/model.bin", WhisperOptions{})
	if err == nil {
		t.Fatal("NewWhisperTranscriber with bad path should return error")
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(&config.TranscribeConfig{Backend: "parakeet", ModelPath: "/nonexistent/model.bin"})
	if err == nil {
		t.Fatal("New() with unknown backend should return error")
	}
	if !strings.Contains(err.Error(), "unknown backend") {
		t.Errorf("error = %v, want unknown backend", err)
	}
}

// loadWAVSamples loads a 16-bit PCM WAV file and returns mono float32 samples
// normalized to [-1.0, 1.0]. The test is skipped if the file does not exist.
func loadWAVSamples(t *testing.T, wavPath string) []float32 {
	t.Helper()
	f, err := os.Open(wavPath)
	if err != nil {
		t.Skipf("WAV file not found at %s: %v", wavPath, err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode WAV %s: %v", wavPath, err)
	}

	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

// jfkSamples loads the JFK sample WAV and returns mono float32 samples.
func jfkSamples(t *testing.T) []float32 {
	t.Helper()
	wavPath := filepath.Join("..", "..", "third_party", "whisper.cpp", "samples", "jfk.wav")
	return loadWAVSamples(t, wavPath)
}

func TestWhisperProcessJFK(t *testing.T) {
	path := whisperModelPath(t)
	samples := jfkSamples(t)

	tr, err := NewWhisperTranscriber(path, WhisperOptions{Language: "en"})
	if err != nil {
		t.Fatalf("NewWhisperTranscriber: %v", err)
	}
	defer func() { _ = tr.Close() }()

	text, err := tr.Process(samples)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	lower := strings.ToLower(text)
	if !strings.Contains(lower, "ask not what your country") {
		t.Errorf("expected transcript to contain 'ask not what your country', got: %q", text)
	}
}

func TestWhisperProcessSilence(t *testing.T) {
	path := whisperModelPath(t)

	tr, err := NewWhisperTranscriber(path, WhisperOptions{Language: "zh", Threads: 2})
	if err != nil {
		t.Fatalf("NewWhisperTranscriber: %v", err)
	}
	defer func() { _ = tr.Close() }()

	// Silent audio should not error. Whisper may hallucinate on silence, so
	// the text itself is not checked.
	silence := make([]float32, SampleRate)
	if _, err := tr.Process(silence); err != nil {
		t.Fatalf("Process on silence returned error: %v", err)
	}
}
