package audio

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Supported clip formats.
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// Exporter writes clips to disk in a single format.
type Exporter struct {
	Format     string
	FFmpegPath string
}

// NewExporter creates an Exporter for format ("wav" or "mp3").
func NewExporter(format, ffmpegPath string) (*Exporter, error) {
	switch format {
	case FormatWAV, FormatMP3:
	case "":
		format = FormatWAV
	default:
		return nil, fmt.Errorf("audio: unsupported clip format %q (supported: wav, mp3)", format)
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Exporter{Format: format, FFmpegPath: ffmpegPath}, nil
}

// Write stores clip as dir/phrase_<index>.<format> and returns the path.
func (e *Exporter) Write(ctx context.Context, clip Clip, dir string) (string, error) {
	path := filepath.Join(dir, clip.FileName(e.Format))

	var err error
	switch e.Format {
	case FormatMP3:
		err = e.writeMP3(ctx, clip, path)
	default:
		err = writeWAV(clip, path)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// writeWAV encodes clip as 16-bit PCM mono.
func writeWAV(clip Clip, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %q: %w", path, err)
	}

	enc := wav.NewEncoder(f, clip.SampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: clip.SampleRate},
		Data:           float32ToInt16(clip.Samples),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("audio: encode %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("audio: finalize %q: %w", path, err)
	}
	return f.Close()
}

func (e *Exporter) writeMP3(ctx context.Context, clip Clip, path string) error {
	cmd := exec.CommandContext(ctx, e.FFmpegPath,
		"-y",
		"-f", "f32le",
		"-ar", strconv.Itoa(clip.SampleRate),
		"-ac", "1",
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-q:a", "2",
		"-loglevel", "error",
		path,
	)
	cmd.Stdin = bytes.NewReader(float32ToBytes(clip.Samples))
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio: encode %q: %w: %v: %s", path, ErrFFmpeg, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// float32ToInt16 scales normalized samples to the 16-bit range, clipping
// anything outside [-1.0, 1.0].
func float32ToInt16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		out[i] = int(min(max(v, -32768), 32767))
	}
	return out
}
