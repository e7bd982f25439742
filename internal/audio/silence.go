package audio

import (
	"fmt"
	"math"
	"time"
)

// SplitOptions controls how a Buffer is cut into phrases.
type SplitOptions struct {
	// SilenceThreshDB is the level, in dBFS, at or below which a window
	// counts as silent.
	SilenceThreshDB float64
	// MinSilence is the shortest pause that separates two phrases.
	MinSilence time.Duration
	// KeepSilence is how much of the surrounding pause stays attached to
	// each side of a phrase.
	KeepSilence time.Duration
	// Padding is digital silence added before and after every clip.
	Padding time.Duration
	// SeekStep is the stride of the silence detection window.
	SeekStep time.Duration
}

// DefaultSplitOptions returns -40 dBFS, 500ms pauses, 100ms kept silence,
// 100ms padding and a 1ms seek step.
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{
		SilenceThreshDB: -40,
		MinSilence:      500 * time.Millisecond,
		KeepSilence:     100 * time.Millisecond,
		Padding:         100 * time.Millisecond,
		SeekStep:        time.Millisecond,
	}
}

// Split cuts buf into padded phrase clips in source order. It returns
// ErrNoPhrases when the whole buffer is silent.
func Split(buf *Buffer, opts SplitOptions) ([]Clip, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, fmt.Errorf("audio: split: %w", ErrEmptyAudio)
	}
	if buf.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: split: invalid sample rate %d", buf.SampleRate)
	}

	minSilence := durationMS(opts.MinSilence)
	seekStep := durationMS(opts.SeekStep)
	if minSilence <= 0 || seekStep <= 0 {
		return nil, fmt.Errorf("audio: split: min silence and seek step must be at least 1ms")
	}

	nonsilent := detectNonsilent(buf, opts.SilenceThreshDB, minSilence, seekStep)
	if len(nonsilent) == 0 {
		return nil, fmt.Errorf("audio: split: %w", ErrNoPhrases)
	}

	keep := durationMS(opts.KeepSilence)
	ranges := make([][2]int, len(nonsilent))
	for i, r := range nonsilent {
		ranges[i] = [2]int{r[0] - keep, r[1] + keep}
	}
	// Neighbours whose kept silence overlaps share the pause at its midpoint.
	for i := 0; i+1 < len(ranges); i++ {
		lastEnd, nextStart := ranges[i][1], ranges[i+1][0]
		if nextStart < lastEnd {
			mid := (lastEnd + nextStart) / 2
			ranges[i][1] = mid
			ranges[i+1][0] = mid
		}
	}

	lenMS := bufferMS(buf)
	pad := make([]float32, msToSample(durationMS(opts.Padding), buf.SampleRate))
	clips := make([]Clip, 0, len(ranges))
	for _, r := range ranges {
		start := max(r[0], 0)
		end := min(r[1], lenMS)
		a := msToSample(start, buf.SampleRate)
		b := min(msToSample(end, buf.SampleRate), len(buf.Samples))

		samples := make([]float32, 0, len(pad)*2+b-a)
		samples = append(samples, pad...)
		samples = append(samples, buf.Samples[a:b]...)
		samples = append(samples, pad...)

		clips = append(clips, Clip{
			Index: len(clips),
			Range: Range{
				Start: time.Duration(start) * time.Millisecond,
				End:   time.Duration(end) * time.Millisecond,
			},
			Samples:    samples,
			SampleRate: buf.SampleRate,
		})
	}
	return clips, nil
}

// DetectSilence returns the silent ranges of buf, in milliseconds. A range is
// silent when every minSilence window inside it has an RMS level at or
// below threshDB.
func DetectSilence(buf *Buffer, threshDB float64, minSilence, seekStep time.Duration) []Range {
	return toRanges(detectSilence(buf, threshDB, durationMS(minSilence), durationMS(seekStep)))
}

// DetectNonsilent returns the complement of DetectSilence.
func DetectNonsilent(buf *Buffer, threshDB float64, minSilence, seekStep time.Duration) []Range {
	return toRanges(detectNonsilent(buf, threshDB, durationMS(minSilence), durationMS(seekStep)))
}

func detectSilence(buf *Buffer, threshDB float64, minSilence, seekStep int) [][2]int {
	lenMS := bufferMS(buf)
	if minSilence <= 0 || seekStep <= 0 || lenMS < minSilence {
		return nil
	}

	threshold := math.Pow(10, threshDB/20)
	energy := newEnergyIndex(buf.Samples)

	lastStart := lenMS - minSilence
	var starts []int
	check := func(i int) {
		a := msToSample(i, buf.SampleRate)
		b := msToSample(i+minSilence, buf.SampleRate)
		if energy.rms(a, b) <= threshold {
			starts = append(starts, i)
		}
	}
	for i := 0; i <= lastStart; i += seekStep {
		check(i)
	}
	if lastStart%seekStep != 0 {
		check(lastStart)
	}
	if len(starts) == 0 {
		return nil
	}

	var ranges [][2]int
	prev := starts[0]
	current := prev
	for _, s := range starts[1:] {
		continuous := s == prev+seekStep
		hasGap := s > prev+minSilence
		if !continuous && hasGap {
			ranges = append(ranges, [2]int{current, prev + minSilence})
			current = s
		}
		prev = s
	}
	return append(ranges, [2]int{current, prev + minSilence})
}

func detectNonsilent(buf *Buffer, threshDB float64, minSilence, seekStep int) [][2]int {
	lenMS := bufferMS(buf)
	silent := detectSilence(buf, threshDB, minSilence, seekStep)
	if len(silent) == 0 {
		if lenMS == 0 {
			return nil
		}
		return [][2]int{{0, lenMS}}
	}
	if silent[0][0] == 0 && silent[0][1] == lenMS {
		return nil
	}

	var out [][2]int
	prevEnd := 0
	for _, r := range silent {
		out = append(out, [2]int{prevEnd, r[0]})
		prevEnd = r[1]
	}
	if prevEnd != lenMS {
		out = append(out, [2]int{prevEnd, lenMS})
	}
	if out[0] == [2]int{0, 0} {
		out = out[1:]
	}
	return out
}

// energyIndex answers RMS queries over arbitrary sample spans in O(1).
type energyIndex struct {
	prefix []float64
}

func newEnergyIndex(samples []float32) energyIndex {
	prefix := make([]float64, len(samples)+1)
	for i, s := range samples {
		v := float64(s)
		prefix[i+1] = prefix[i] + v*v
	}
	return energyIndex{prefix: prefix}
}

func (e energyIndex) rms(a, b int) float64 {
	n := len(e.prefix) - 1
	a = min(max(a, 0), n)
	b = min(max(b, 0), n)
	if b <= a {
		return 0
	}
	return math.Sqrt((e.prefix[b] - e.prefix[a]) / float64(b-a))
}

func bufferMS(buf *Buffer) int {
	if buf.SampleRate <= 0 {
		return 0
	}
	return int(int64(len(buf.Samples)) * 1000 / int64(buf.SampleRate))
}

func msToSample(ms, sampleRate int) int {
	return int(int64(ms) * int64(sampleRate) / 1000)
}

func durationMS(d time.Duration) int {
	return int(d / time.Millisecond)
}

func toRanges(ms [][2]int) []Range {
	out := make([]Range, len(ms))
	for i, r := range ms {
		out[i] = Range{
			Start: time.Duration(r[0]) * time.Millisecond,
			End:   time.Duration(r[1]) * time.Millisecond,
		}
	}
	return out
}
