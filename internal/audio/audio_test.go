package audio

import (
	"math"
)

const testRate = 16000

// tone returns ms milliseconds of a 440Hz sine at the given amplitude.
func tone(ms int, amp float64) []float32 {
	n := ms * testRate / 1000
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*440*float64(i)/testRate))
	}
	return out
}

// silence returns ms milliseconds of digital silence.
func silence(ms int) []float32 {
	return make([]float32, ms*testRate/1000)
}

func concat(parts ...[]float32) *Buffer {
	var samples []float32
	for _, p := range parts {
		samples = append(samples, p...)
	}
	return &Buffer{Samples: samples, SampleRate: testRate}
}
