// Package pipeline turns one recording and its reference text into a study
// page: decode, split on silence, export clips, transcribe, render.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/chaz8081/phrasedeck/internal/audio"
	"github.com/chaz8081/phrasedeck/internal/page"
	"github.com/chaz8081/phrasedeck/internal/transcribe"
)

// ErrMissingInput is returned when the audio or reference text file does
// not exist.
var ErrMissingInput = errors.New("input file not found")

// Options describes one build.
type Options struct {
	AudioPath string
	TextPath  string
	// OutputDir is the parent of the generated <base> folder.
	OutputDir string
	Split     audio.SplitOptions
	Title     string
	Language  string
}

// ProgressFunc is called after each clip is transcribed.
type ProgressFunc func(done, total int)

// Pipeline holds the collaborators of a build. Transcriber is loaded by the
// caller so the model is shared across builds.
type Pipeline struct {
	Decoder     *audio.Decoder
	Exporter    *audio.Exporter
	Transcriber transcribe.Transcriber
	Logger      *slog.Logger
	Progress    ProgressFunc
}

// Result describes a finished build. Phrases[i] came from clip i.
type Result struct {
	PagePath  string
	OutputDir string
	BuildID   string
	Duration  time.Duration
	Phrases   []page.Phrase
	Agreement transcribe.WERResult
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DefaultTextPath returns <dir of audio>/<base>.txt.
func DefaultTextPath(audioPath string) string {
	return filepath.Join(filepath.Dir(audioPath), BaseName(audioPath)+".txt")
}

// Run executes a build.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pipeline")

	if err := CheckInputs(opts); err != nil {
		return nil, err
	}

	base := BaseName(opts.AudioPath)
	outDir := filepath.Join(opts.OutputDir, base)

	start := time.Now()
	buf, err := p.Decoder.Decode(ctx, opts.AudioPath)
	if err != nil {
		return nil, err
	}
	logger.Info("audio decoded",
		"path", opts.AudioPath,
		"duration", buf.Duration().Round(time.Millisecond),
		"sample_rate", buf.SampleRate,
		"elapsed", time.Since(start).Round(time.Millisecond))

	clips, err := audio.Split(buf, opts.Split)
	if err != nil {
		return nil, err
	}
	logger.Info("phrases detected", "count", len(clips))

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("pipeline: create output dir: %w", err)
	}

	phrases := make([]page.Phrase, len(clips))
	for i, clip := range clips {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := p.Exporter.Write(ctx, clip, outDir)
		if err != nil {
			return nil, err
		}
		phrases[i] = page.Phrase{
			Index: clip.Index,
			File:  filepath.Base(path),
			Start: clip.Range.Start,
			End:   clip.Range.End,
		}
		logger.Debug("clip written", "clip", clip.String(), "file", phrases[i].File)
	}

	texts, err := p.transcribeAll(ctx, logger, clips)
	if err != nil {
		return nil, err
	}
	for i := range phrases {
		phrases[i].Text = texts[i]
	}

	reference, err := readReference(opts.TextPath)
	if err != nil {
		return nil, err
	}

	agreement := transcribe.ComputeWER(reference, strings.Join(texts, " "))
	logger.Info("reference agreement",
		"error_rate", fmt.Sprintf("%.3f", agreement.WER),
		"reference_tokens", agreement.RefTokens)

	buildID := uuid.NewString()
	htmlPath, err := page.WriteSite(outDir, base, page.Document{
		Title:     opts.Title,
		Lang:      opts.Language,
		Reference: reference,
		Source:    filepath.Base(opts.AudioPath),
		BuildID:   buildID,
		Phrases:   phrases,
	})
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(htmlPath)
	if err != nil {
		absPath = htmlPath
	}

	logger.Info("page written", "path", absPath, "elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		PagePath:  absPath,
		OutputDir: outDir,
		BuildID:   buildID,
		Duration:  buf.Duration(),
		Phrases:   phrases,
		Agreement: agreement,
	}, nil
}

// transcribeAll returns one text per clip, in clip order.
func (p *Pipeline) transcribeAll(ctx context.Context, logger *slog.Logger, clips []audio.Clip) ([]string, error) {
	texts := make([]string, len(clips))
	for i, clip := range clips {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		samples := audio.Resample(clip.Samples, clip.SampleRate, transcribe.SampleRate)
		started := time.Now()
		text, err := p.Transcriber.Process(samples)
		if err != nil {
			return nil, fmt.Errorf("pipeline: transcribe phrase %d: %w", clip.Index, err)
		}
		texts[i] = norm.NFC.String(strings.TrimSpace(text))

		logger.Debug("phrase transcribed",
			"index", clip.Index,
			"elapsed", time.Since(started).Round(time.Millisecond),
			"text", texts[i])
		if texts[i] == "" {
			logger.Warn("no speech recognized", "index", clip.Index, "range", fmt.Sprintf("%s-%s", clip.Range.Start, clip.Range.End))
		}
		if p.Progress != nil {
			p.Progress(i+1, len(clips))
		}
	}
	return texts, nil
}

// CheckInputs verifies that the audio and reference text files exist.
func CheckInputs(opts Options) error {
	for _, path := range []string{opts.AudioPath, opts.TextPath} {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("pipeline: %q: %w", path, ErrMissingInput)
			}
			return fmt.Errorf("pipeline: stat %q: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("pipeline: %q is a directory", path)
		}
	}
	return nil
}

// readReference returns the reference text verbatim, NFC-normalized.
func readReference(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("pipeline: read reference text: %w", err)
	}
	return norm.NFC.String(string(data)), nil
}
