package sound

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/igolaizola/songseed/pkg/music"
)

func TestEncodeWAVHeader(t *testing.T) {
	b := EncodeWAV([]int16{1, -1, 32767, -32768}, 44100, 2)
	if len(b) != 44+8 {
		t.Fatalf("len(EncodeWAV()) = %d; want 52", len(b))
	}
	le := binary.LittleEndian
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", le.Uint32(b[4:8]), 36 + 8},
		{"fmt size", le.Uint32(b[16:20]), 16},
		{"format", uint32(le.Uint16(b[20:22])), 1},
		{"channels", uint32(le.Uint16(b[22:24])), 2},
		{"sample rate", le.Uint32(b[24:28]), 44100},
		{"byte rate", le.Uint32(b[28:32]), 44100 * 2 * 2},
		{"block align", uint32(le.Uint16(b[32:34])), 4},
		{"bits", uint32(le.Uint16(b[34:36])), 16},
		{"data size", le.Uint32(b[40:44]), 8},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d; want %d", tt.name, tt.got, tt.want)
		}
	}
	for i, tag := range map[int]string{0: "RIFF", 8: "WAVE", 12: "fmt ", 36: "data"} {
		if got := string(b[i : i+4]); got != tag {
			t.Errorf("b[%d:%d] = %q; want %q", i, i+4, got, tag)
		}
	}
	if got := int16(le.Uint16(b[46:48])); got != -1 {
		t.Errorf("second sample = %d; want -1", got)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	c := music.Compose(9841506034315991252)
	synth := DefaultSynthesizer()
	b := synth.Render(c, 0)

	w, err := DecodeWAV(b)
	if err != nil {
		t.Fatalf("DecodeWAV() err = %v; want nil", err)
	}
	if w.SampleRate != 44100 || w.Channels != 2 || w.BitsPerSample != 16 {
		t.Fatalf("DecodeWAV() = %d Hz %d ch %d bits; want 44100 Hz 2 ch 16 bits", w.SampleRate, w.Channels, w.BitsPerSample)
	}
	if w.RIFFSize != 36+w.DataSize {
		t.Fatalf("RIFFSize = %d; want %d", w.RIFFSize, 36+w.DataSize)
	}
	if len(b) != 44+w.DataSize {
		t.Fatalf("len(b) = %d; want %d", len(b), 44+w.DataSize)
	}
	if w.ByteRate != 44100*4 || w.BlockAlign != 4 {
		t.Fatalf("ByteRate, BlockAlign = %d, %d; want %d, 4", w.ByteRate, w.BlockAlign, 44100*4)
	}
	want := c.Duration() + DefaultRelease
	if diff := w.Duration() - want; diff < -time.Millisecond || diff > time.Millisecond {
		t.Fatalf("Duration() = %v; want %v", w.Duration(), want)
	}
}

func TestRenderDeterministic(t *testing.T) {
	synth := DefaultSynthesizer()
	for _, s := range []uint64{0, 42} {
		a := synth.Render(music.Compose(s), 0)
		b := synth.Render(music.Compose(s), 0)
		if !bytes.Equal(a, b) {
			t.Fatalf("Render(Compose(%d)) is not deterministic", s)
		}
	}
}

func TestRenderOverride(t *testing.T) {
	synth := &Synthesizer{SampleRate: 8000, Channels: 1, Attack: DefaultAttack, Release: DefaultRelease, Gain: 0.3}
	b := synth.Render(music.Compose(7), 2*time.Second)
	w, err := DecodeWAV(b)
	if err != nil {
		t.Fatalf("DecodeWAV() err = %v; want nil", err)
	}
	if w.Frames() != 16000 {
		t.Fatalf("Frames() = %d; want 16000", w.Frames())
	}
}

func TestRenderChannelsClamped(t *testing.T) {
	for _, channels := range []int{0, -2} {
		synth := &Synthesizer{SampleRate: 8000, Channels: channels, Attack: DefaultAttack, Release: DefaultRelease, Gain: 0.3}
		for name, b := range map[string][]byte{
			"Render":     synth.Render(music.Compose(7), time.Second),
			"RenderRiff": synth.RenderRiff(7),
		} {
			w, err := DecodeWAV(b)
			if err != nil {
				t.Fatalf("%s() with %d channels err = %v; want nil", name, channels, err)
			}
			if w.Channels != 1 || w.BlockAlign != 2 || w.ByteRate != 16000 {
				t.Fatalf("%s() with %d channels = %d ch, align %d, rate %d; want 1 ch, align 2, rate 16000",
					name, channels, w.Channels, w.BlockAlign, w.ByteRate)
			}
			if len(b) != 44+w.DataSize {
				t.Fatalf("%s() len = %d; want %d", name, len(b), 44+w.DataSize)
			}
		}
	}
}

func TestRenderSilence(t *testing.T) {
	synth := &Synthesizer{SampleRate: 1000, Channels: 1, Attack: DefaultAttack, Release: DefaultRelease, Gain: 1}
	c := &music.Composition{Tempo: 120}
	samples := synth.Samples(c, time.Second)
	if len(samples) != 1000 {
		t.Fatalf("len(Samples()) = %d; want 1000", len(samples))
	}
	for i, s := range samples {
		if s != 0 {
			t.Fatalf("Samples()[%d] = %d; want 0", i, s)
		}
	}
}

func TestMixerSums(t *testing.T) {
	synth := &Synthesizer{SampleRate: 1000, Channels: 2, Gain: 1}
	one := synth.newMixer(1)
	one.add(69, 0, 1, 0.1)
	two := synth.newMixer(1)
	two.add(69, 0, 1, 0.1)
	two.add(69, 0, 1, 0.1)
	for i := range one.buf {
		if math.Abs(two.buf[i]-2*one.buf[i]) > 1e-12 {
			t.Fatalf("buf[%d] = %v; want %v", i, two.buf[i], 2*one.buf[i])
		}
	}
	// Both channels carry the same signal
	for i := 0; i < len(one.buf); i += 2 {
		if one.buf[i] != one.buf[i+1] {
			t.Fatalf("channels differ at frame %d", i/2)
		}
	}
}

func TestMixerSkipsOutOfRange(t *testing.T) {
	synth := &Synthesizer{SampleRate: 1000, Channels: 1, Gain: 1}
	m := synth.newMixer(1)
	m.add(69, 2, 1, 1)
	m.add(-1, 0, 1, 1)
	m.add(69, 0, 0, 1)
	for i, v := range m.buf {
		if v != 0 {
			t.Fatalf("buf[%d] = %v; want 0", i, v)
		}
	}
}

func TestEnvelope(t *testing.T) {
	m := &mixer{attack: 0.01, release: 0.05}
	tests := []struct {
		t, duration float64
		want        float64
	}{
		{0, 1, 0},
		{0.005, 1, 0.5},
		{0.5, 1, 1},
		{0.975, 1, 0.5},
		{1, 1, 0},
	}
	for _, tt := range tests {
		if got := m.envelope(tt.t, tt.duration); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("envelope(%v, %v) = %v; want %v", tt.t, tt.duration, got, tt.want)
		}
	}
}

func TestToInt16(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{2, 32767},
		{-2, -32768},
		{0.5, 16384},
	}
	for _, tt := range tests {
		if got := toInt16(tt.in); got != tt.want {
			t.Errorf("toInt16(%v) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestFrequency(t *testing.T) {
	tests := []struct {
		midi int
		want float64
	}{
		{69, 440},
		{81, 880},
		{57, 220},
	}
	for _, tt := range tests {
		if got := Frequency(tt.midi); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Frequency(%d) = %v; want %v", tt.midi, got, tt.want)
		}
	}
}

func TestRiff(t *testing.T) {
	synth := &Synthesizer{SampleRate: DefaultSampleRate, Channels: 1, Attack: DefaultAttack, Release: DefaultRelease}
	r, m := synth.riff(0)
	samples := m.pcm()
	if r.Seconds != 6 || r.BPM != 134 {
		t.Fatalf("riff(0) = %d s %d BPM; want 6 s 134 BPM", r.Seconds, r.BPM)
	}
	if len(samples) != 6*DefaultSampleRate {
		t.Fatalf("len(samples) = %d; want %d", len(samples), 6*DefaultSampleRate)
	}

	for s := uint64(1); s < 20; s++ {
		r, _ := synth.riff(s)
		if r.Seconds < 6 || r.Seconds > 10 {
			t.Fatalf("riff(%d).Seconds = %d", s, r.Seconds)
		}
		if r.BPM < 90 || r.BPM > 150 {
			t.Fatalf("riff(%d).BPM = %d", s, r.BPM)
		}
		if r.Root < 48 || r.Root > 60 {
			t.Fatalf("riff(%d).Root = %d", s, r.Root)
		}
	}

	a := synth.RenderRiff(99)
	b := synth.RenderRiff(99)
	if !bytes.Equal(a, b) {
		t.Fatal("RenderRiff(99) is not deterministic")
	}
	w, err := DecodeWAV(a)
	if err != nil {
		t.Fatalf("DecodeWAV() err = %v; want nil", err)
	}
	if w.Channels != 1 {
		t.Fatalf("Channels = %d; want 1", w.Channels)
	}
	if w.Duration()%time.Second != 0 {
		t.Fatalf("Duration() = %v; want whole seconds", w.Duration())
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	valid := EncodeWAV([]int16{1, 2, 3}, 8000, 1)

	badFormat := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(badFormat[20:22], 3)

	badBits := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(badBits[34:36], 8)

	overflow := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(overflow[40:44], 1000)

	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"not riff", []byte("RIFX0000WAVE")},
		{"header only", valid[:12]},
		{"no data", valid[:36]},
		{"format", badFormat},
		{"bits", badBits},
		{"overflow", overflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWAV(tt.in); !errors.Is(err, ErrInvalidWAV) {
				t.Fatalf("DecodeWAV() err = %v; want ErrInvalidWAV", err)
			}
		})
	}
}

func TestDecodeWAVSkipsChunks(t *testing.T) {
	valid := EncodeWAV([]int16{5, -5}, 8000, 1)
	// Insert an odd sized LIST chunk between fmt and data
	extra := []byte("LIST\x03\x00\x00\x00abc\x00")
	b := append(append(append([]byte(nil), valid[:36]...), extra...), valid[36:]...)
	w, err := DecodeWAV(b)
	if err != nil {
		t.Fatalf("DecodeWAV() err = %v; want nil", err)
	}
	if len(w.Samples) != 2 || w.Samples[0] != 5 || w.Samples[1] != -5 {
		t.Fatalf("Samples = %v; want [5 -5]", w.Samples)
	}
}

// tone builds a mono WAV at 1 kHz with a 100 Hz sine shaped by amp.
func tone(seconds float64, amp func(t float64) float64) *WAV {
	n := int(seconds * 1000)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / 1000
		samples[i] = toInt16(amp(t) * math.Sin(2*math.Pi*100*t))
	}
	return &WAV{SampleRate: 1000, Channels: 1, BitsPerSample: 16, Samples: samples}
}

func TestAnalyzer(t *testing.T) {
	w := tone(1.5, func(t float64) float64 {
		if t >= 0.5 && t < 1 {
			return 0.5
		}
		return 0
	})
	a := NewAnalyzerFromWAV("tone", w)
	if a.Duration() != 1500*time.Millisecond {
		t.Fatalf("Duration() = %v; want 1.5s", a.Duration())
	}
	if p := a.Peak(); p < 0.45 || p > 0.5 {
		t.Fatalf("Peak() = %v; want ~0.5", p)
	}
	if got := len(a.RMS(100 * time.Millisecond)); got != 15 {
		t.Fatalf("len(RMS()) = %d; want 15", got)
	}
	if got := len(a.Resample(100 * time.Millisecond)); got != 30 {
		t.Fatalf("len(Resample()) = %d; want 30", got)
	}

	silences := a.Silences(-40, 200*time.Millisecond)
	if len(silences) != 2 {
		t.Fatalf("Silences() = %v; want 2 fragments", silences)
	}
	if silences[0].Start != 0 || silences[0].End != 500*time.Millisecond || silences[0].Final {
		t.Fatalf("Silences()[0] = %+v", silences[0])
	}
	if silences[1].Start != time.Second || !silences[1].Final {
		t.Fatalf("Silences()[1] = %+v", silences[1])
	}
}

func TestHasFadeOut(t *testing.T) {
	tests := []struct {
		name string
		amp  func(t float64) float64
		want bool
	}{
		{"constant", func(float64) float64 { return 0.8 }, false},
		{"fade", func(t float64) float64 {
			if t < 1 {
				return 0.8
			}
			return 0.8 * (2 - t)
		}, true},
		{"rise", func(t float64) float64 { return 0.4 * t }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzerFromWAV(tt.name, tone(2, tt.amp))
			if got := a.HasFadeOut(); got != tt.want {
				t.Fatalf("HasFadeOut() = %v; want %v", got, tt.want)
			}
		})
	}

	short := NewAnalyzerFromWAV("short", tone(0.5, func(float64) float64 { return 1 }))
	if short.HasFadeOut() {
		t.Fatal("HasFadeOut() = true for a short input; want false")
	}
}

func TestPlotWave(t *testing.T) {
	synth := &Synthesizer{SampleRate: 8000, Channels: 1, Attack: DefaultAttack, Release: DefaultRelease, Gain: 0.3}
	a, err := NewAnalyzerFromBytes("riff", synth.RenderRiff(1))
	if err != nil {
		t.Fatalf("NewAnalyzerFromBytes() err = %v; want nil", err)
	}
	for name, plot := range map[string]func() ([]byte, error){
		"wave": func() ([]byte, error) { return a.PlotWave("riff") },
		"rms":  a.PlotRMS,
	} {
		b, err := plot()
		if err != nil {
			t.Fatalf("%s err = %v; want nil", name, err)
		}
		if !bytes.HasPrefix(b, []byte("\x89PNG")) {
			t.Fatalf("%s didn't return a png", name)
		}
	}
}

func TestNewAnalyzerFromBytesInvalid(t *testing.T) {
	if _, err := NewAnalyzerFromBytes("bad", []byte("RIFF\x00\x00")); err == nil {
		t.Fatal("NewAnalyzerFromBytes() err = nil; want error")
	}
}
