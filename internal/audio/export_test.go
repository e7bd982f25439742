package audio

import (
	"context"
	"errors"
	"testing"
)

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"wav", FormatWAV, false},
		{"mp3", FormatMP3, false},
		{"", FormatWAV, false},
		{"flac", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			e, err := NewExporter(tt.format, "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExporter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if err == nil && e.Format != tt.want {
				t.Errorf("Format = %q, want %q", e.Format, tt.want)
			}
		})
	}
}

func TestExporterMP3WithoutFFmpeg(t *testing.T) {
	e, err := NewExporter(FormatMP3, "/nonexistent/ffmpeg")
	if err != nil {
		t.Fatal(err)
	}
	clip := Clip{Index: 1, Samples: tone(100, 0.5), SampleRate: testRate}
	if _, err := e.Write(context.Background(), clip, t.TempDir()); !errors.Is(err, ErrFFmpeg) {
		t.Fatalf("Write() error = %v, want ErrFFmpeg", err)
	}
}

func TestFloat32ToInt16Clips(t *testing.T) {
	got := float32ToInt16([]float32{0, 1, -1, 2, -2, 0.5})
	want := []int{0, 32767, -32767, 32767, -32768, 16384}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("float32ToInt16()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
