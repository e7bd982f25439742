package transcribe

import (
	"fmt"
	"io"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperOptions are applied to every decoding context.
type WhisperOptions struct {
	// Language is a whisper language code such as "zh", or "auto".
	Language      string
	Threads       uint
	InitialPrompt string
}

// WhisperTranscriber wraps a whisper.cpp model for speech-to-text.
type WhisperTranscriber struct {
	model whisper.Model
	opts  WhisperOptions
}

// NewWhisperTranscriber loads a whisper model from the given path.
// The caller must call Close() when done.
func NewWhisperTranscriber(modelPath string, opts WhisperOptions) (*WhisperTranscriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}

	lang := strings.ToLower(strings.TrimSpace(opts.Language))
	if lang != "" && lang != "en" && lang != "auto" && !model.IsMultilingual() {
		_ = model.Close()
		return nil, fmt.Errorf("transcribe: model %q is English-only, cannot transcribe language %q", modelPath, opts.Language)
	}
	opts.Language = lang

	return &WhisperTranscriber{model: model, opts: opts}, nil
}

// Close releases the whisper model resources.
func (t *WhisperTranscriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Process transcribes mono 16kHz float32 audio samples to text.
func (t *WhisperTranscriber) Process(samples []float32) (string, error) {
	ctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: create context: %w", err)
	}

	if t.opts.Language != "" {
		if err := ctx.SetLanguage(t.opts.Language); err != nil {
			return "", fmt.Errorf("transcribe: set language %q: %w", t.opts.Language, err)
		}
	}
	if t.opts.Threads > 0 {
		ctx.SetThreads(t.opts.Threads)
	}
	if t.opts.InitialPrompt != "" {
		ctx.SetInitialPrompt(t.opts.InitialPrompt)
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return JoinSegments(segments), nil
}
