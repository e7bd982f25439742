// Package audio decodes recordings, splits them into phrases on silence and
// writes the phrases back out as clip files.
package audio

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when the input audio file does not exist.
	ErrNotFound = errors.New("audio file not found")
	// ErrEmptyAudio is returned when decoding yields no samples.
	ErrEmptyAudio = errors.New("audio contains no samples")
	// ErrNoPhrases is returned when silence detection finds nothing to keep.
	ErrNoPhrases = errors.New("no phrases detected")
	// ErrFFmpeg is returned when an ffmpeg invocation fails.
	ErrFFmpeg = errors.New("ffmpeg failed")
)

// Buffer is mono float32 PCM normalized to [-1.0, 1.0].
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Range is a span of the source audio.
type Range struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the length of the range.
func (r Range) Duration() time.Duration {
	return r.End - r.Start
}

// Clip is one phrase cut from a Buffer. Samples include the leading and
// trailing padding; Range does not.
type Clip struct {
	Index      int
	Range      Range
	Samples    []float32
	SampleRate int
}

// String returns a human-readable representation for logging.
func (c Clip) String() string {
	return fmt.Sprintf("phrase %d: %s-%s", c.Index, c.Range.Start, c.Range.End)
}

// FileName returns the clip's file name for the given extension.
func (c Clip) FileName(ext string) string {
	return fmt.Sprintf("phrase_%d.%s", c.Index, ext)
}
