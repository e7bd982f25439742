package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE format tag of integer PCM.
const wavFormatPCM = 1

// errNotSignedPCM marks WAV files the in-process decoder cannot scale:
// 8-bit (unsigned) PCM, IEEE float and other non-PCM encodings.
var errNotSignedPCM = errors.New("wav is not signed integer PCM")

// Decoder turns an audio file into a mono Buffer at a fixed sample rate.
// WAV files are decoded in-process; everything else goes through ffmpeg.
type Decoder struct {
	FFmpegPath string
	SampleRate int
}

// NewDecoder creates a Decoder producing buffers at sampleRate.
func NewDecoder(ffmpegPath string, sampleRate int) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Decoder{FFmpegPath: ffmpegPath, SampleRate: sampleRate}
}

// Decode reads path and returns its samples mixed down to mono.
func (d *Decoder) Decode(ctx context.Context, path string) (*Buffer, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("audio: decode %q: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("audio: decode %q: %w", path, err)
	}

	var (
		buf *Buffer
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		buf, err = d.decodeWAV(path)
		if errors.Is(err, errNotSignedPCM) {
			buf, err = d.decodeFFmpeg(ctx, path)
		}
	} else {
		buf, err = d.decodeFFmpeg(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	if len(buf.Samples) == 0 {
		return nil, fmt.Errorf("audio: decode %q: %w", path, ErrEmptyAudio)
	}
	return buf, nil
}

func (d *Decoder) decodeWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audio: %q is not a valid WAV file", path)
	}

	if dec.WavAudioFormat != wavFormatPCM || dec.BitDepth <= 8 {
		return nil, fmt.Errorf("audio: %q (format %d, %d bit): %w", path, dec.WavAudioFormat, dec.BitDepth, errNotSignedPCM)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode WAV %q: %w", path, err)
	}

	channels := int(dec.NumChans)
	if channels <= 0 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(math.Pow(2, float64(bitDepth-1)))

	mono := make([]float32, len(pcm.Data)/channels)
	for i := range mono {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(pcm.Data[i*channels+c]) / scale
		}
		mono[i] = sum / float32(channels)
	}

	rate := int(dec.SampleRate)
	if d.SampleRate > 0 && rate != d.SampleRate {
		mono = Resample(mono, rate, d.SampleRate)
		rate = d.SampleRate
	}
	return &Buffer{Samples: mono, SampleRate: rate}, nil
}

func (d *Decoder) decodeFFmpeg(ctx context.Context, path string) (*Buffer, error) {
	cmd := exec.CommandContext(ctx, d.FFmpegPath,
		"-nostdin",
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(d.SampleRate),
		"-loglevel", "error",
		"pipe:1",
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("audio: decode %q: %w: %v: %s", path, ErrFFmpeg, err, strings.TrimSpace(stderr.String()))
	}

	return &Buffer{
		Samples:    bytesToFloat32(out, uint32(len(out)/4)),
		SampleRate: d.SampleRate,
	}, nil
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}

// float32ToBytes is the inverse of bytesToFloat32.
func float32ToBytes(samples []float32) []byte {
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}
	return data
}
