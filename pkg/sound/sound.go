package sound

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Analyzer inspects decoded audio.
type Analyzer struct {
	channels [][]float64
	mono     []float64
	rate     int
	duration time.Duration
	source   string
}

// NewAnalyzer loads a WAV or MP3 file from a local path or an http(s) URL.
func NewAnalyzer(ctx context.Context, u string) (*Analyzer, error) {
	b, err := load(ctx, u)
	if err != nil {
		return nil, err
	}
	return NewAnalyzerFromBytes(u, b)
}

// NewAnalyzerFromBytes decodes WAV or MP3 bytes. The format is detected from
// the RIFF magic.
func NewAnalyzerFromBytes(src string, b []byte) (*Analyzer, error) {
	if bytes.HasPrefix(b, []byte("RIFF")) {
		w, err := DecodeWAV(b)
		if err != nil {
			return nil, fmt.Errorf("sound: couldn't decode wav: %w", err)
		}
		return NewAnalyzerFromWAV(src, w), nil
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't decode mp3: %w", err)
	}

	// go-mp3 always outputs 16 bit little endian stereo
	stereo := make([][]float64, 2)
	buf := make([]byte, 2)
	var i int
	for {
		_, err := io.ReadFull(decoder, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sound: couldn't read sample: %w", err)
		}
		sample := int16(buf[0]) | int16(buf[1])<<8
		stereo[i%2] = append(stereo[i%2], float64(sample)/32768.0)
		i++
	}
	stereo[1] = stereo[1][:min(len(stereo[0]), len(stereo[1]))]
	stereo[0] = stereo[0][:len(stereo[1])]
	return newAnalyzer(src, decoder.SampleRate(), stereo), nil
}

// NewAnalyzerFromWAV wraps an already decoded WAV stream.
func NewAnalyzerFromWAV(src string, w *WAV) *Analyzer {
	channels := make([][]float64, w.Channels)
	frames := w.Frames()
	for c := range channels {
		channels[c] = make([]float64, frames)
	}
	for i := 0; i < frames*w.Channels; i++ {
		channels[i%w.Channels][i/w.Channels] = float64(w.Samples[i]) / 32768.0
	}
	return newAnalyzer(src, w.SampleRate, channels)
}

func newAnalyzer(src string, rate int, channels [][]float64) *Analyzer {
	var mono []float64
	if len(channels) > 0 {
		mono = make([]float64, len(channels[0]))
		for _, ch := range channels {
			for i, v := range ch {
				mono[i] += v / float64(len(channels))
			}
		}
	}
	var duration time.Duration
	if rate > 0 {
		duration = time.Duration(float64(len(mono)) / float64(rate) * float64(time.Second))
	}
	return &Analyzer{
		source:   src,
		channels: channels,
		mono:     mono,
		rate:     rate,
		duration: duration,
	}
}

func (a *Analyzer) Source() string {
	return a.source
}

func (a *Analyzer) Duration() time.Duration {
	return a.duration
}

func (a *Analyzer) SampleRate() int {
	return a.rate
}

func (a *Analyzer) Channels() int {
	return len(a.channels)
}

// Peak returns the maximum absolute amplitude in the range [0, 1].
func (a *Analyzer) Peak() float64 {
	var peak float64
	for _, v := range a.mono {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// Resample returns the min and max of every window, interleaved.
func (a *Analyzer) Resample(windowSize time.Duration) []float64 {
	samples := a.mono
	windowLength := a.windowLength(windowSize)

	var resampled []float64
	for i := 0; i < len(samples); i += windowLength {
		end := min(i+windowLength, len(samples))
		window := samples[i:end]
		var lo, hi float64
		for _, v := range window {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		resampled = append(resampled, lo, hi)
	}
	return resampled
}

// RMS returns the root mean square of every window.
func (a *Analyzer) RMS(windowSize time.Duration) []float64 {
	samples := a.mono
	windowLength := a.windowLength(windowSize)

	var rms []float64
	for i := 0; i < len(samples); i += windowLength {
		end := min(i+windowLength, len(samples))
		rms = append(rms, calculateRMS(samples[i:end]))
	}
	return rms
}

func (a *Analyzer) windowLength(windowSize time.Duration) int {
	return max(1, int(float64(a.rate)*windowSize.Seconds()))
}

func calculateRMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var squareSum float64
	for _, sample := range samples {
		squareSum += sample * sample
	}
	meanSquare := squareSum / float64(len(samples))
	return math.Sqrt(meanSquare)
}

type Fragment struct {
	Start    time.Duration
	End      time.Duration
	Duration time.Duration
	Final    bool
}

const silenceWindow = 10 * time.Millisecond

// Silences returns the fragments quieter than threshold decibels that last
// at least minDuration.
func (a *Analyzer) Silences(threshold float64, minDuration time.Duration) []Fragment {
	rms := a.RMS(silenceWindow)
	limit := math.Pow(10, threshold/20)

	var fragments []Fragment
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		f := Fragment{
			Start: time.Duration(start) * silenceWindow,
			End:   min(time.Duration(end)*silenceWindow, a.duration),
		}
		f.Duration = f.End - f.Start
		f.Final = f.End == a.duration
		if f.Duration >= minDuration {
			fragments = append(fragments, f)
		}
		start = -1
	}
	for i, v := range rms {
		if v <= limit {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(rms))
	return fragments
}

func (a *Analyzer) PlotRMS() ([]byte, error) {
	window := 50 * time.Millisecond
	rms := a.RMS(window)
	return createPlot("rms", rms, 0, 1, window.Seconds(), 0.01)
}

func (a *Analyzer) PlotWave(name string) ([]byte, error) {
	window := 50 * time.Millisecond
	resampled := a.Resample(window)
	// Two values per window
	return createPlot(name, resampled, -1, 1, window.Seconds()/2, 0)
}

func createPlot(name string, data []float64, min, max float64, step float64, line float64) ([]byte, error) {
	p := plot.New()

	p.Y.Min = min
	p.Y.Max = max

	d := time.Duration(float64(len(data)) * step * float64(time.Second)).Round(time.Millisecond)
	p.Title.Text = fmt.Sprintf("%s %s", name, d)
	p.X.Label.Text = "seconds"
	p.Y.Label.Text = "amplitude"

	pts := make(plotter.XYs, len(data))
	for i, v := range data {
		pts[i].X = float64(i) * step
		pts[i].Y = v
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create line plotter: %w", err)
	}
	l.LineStyle.Width = vg.Points(1)
	p.Add(l)

	// Reference line at y = N
	if line > 0 {
		hLine := plotter.NewFunction(func(x float64) float64 { return line })
		hLine.Color = color.RGBA{R: 255, A: 255}
		p.Add(hLine)
	}

	c, err := p.WriterTo(6*vg.Inch, 3*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("sound: couldn't write plot: %w", err)
	}
	return buf.Bytes(), nil
}

func load(ctx context.Context, u string) ([]byte, error) {
	if !strings.HasPrefix(u, "http") {
		b, err := os.ReadFile(u)
		if err != nil {
			return nil, fmt.Errorf("sound: couldn't read file: %w", err)
		}
		return b, nil
	}

	client := &http.Client{
		Timeout: 2 * time.Minute,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sound: couldn't download audio: status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't read audio: %w", err)
	}
	return b, nil
}
