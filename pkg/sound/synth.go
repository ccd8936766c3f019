package sound

import (
	"math"
	"time"

	"github.com/igolaizola/songseed/pkg/music"
)

const (
	DefaultSampleRate = 44100
	DefaultAttack     = 10 * time.Millisecond
	DefaultRelease    = 50 * time.Millisecond

	// secondHarmonic is the level of the octave partial added to every note.
	secondHarmonic = 0.25
	// softLimitDrive is the input gain of the tanh limiter.
	softLimitDrive = 1.4
)

// Synthesizer renders compositions into PCM16 WAV bytes.
type Synthesizer struct {
	SampleRate int
	Channels   int
	Attack     time.Duration
	Release    time.Duration
	// Gain scales every note after the velocity is applied.
	Gain float64
}

// DefaultSynthesizer returns a stereo synthesizer at 44.1 kHz.
func DefaultSynthesizer() *Synthesizer {
	return &Synthesizer{
		SampleRate: DefaultSampleRate,
		Channels:   2,
		Attack:     DefaultAttack,
		Release:    DefaultRelease,
		Gain:       0.3,
	}
}

// Render synthesizes the full composition. A zero duration renders the
// composition length plus the release tail.
func (s *Synthesizer) Render(c *music.Composition, duration time.Duration) []byte {
	return s.mix(c, duration).wav()
}

// Samples is like Render but returns the interleaved samples.
func (s *Synthesizer) Samples(c *music.Composition, duration time.Duration) []int16 {
	return s.mix(c, duration).pcm()
}

func (s *Synthesizer) mix(c *music.Composition, duration time.Duration) *mixer {
	spb := c.SecondsPerBeat()
	seconds := duration.Seconds()
	if duration <= 0 {
		seconds = c.Beats()*spb + s.Release.Seconds()
	}
	m := s.newMixer(seconds)
	for _, n := range c.Notes {
		gain := s.Gain * float64(n.Velocity) / 127.0
		m.add(n.Pitch, n.StartBeat*spb, n.DurationBeats*spb, gain)
	}
	return m
}

// Frequency returns the frequency in Hz of a MIDI note.
func Frequency(midi int) float64 {
	return 440.0 * math.Pow(2.0, float64(midi-69)/12.0)
}

// mixer accumulates notes in a float buffer before limiting.
type mixer struct {
	rate     int
	channels int
	attack   float64
	release  float64
	buf      []float64
}

func (s *Synthesizer) newMixer(seconds float64) *mixer {
	channels := max(1, s.Channels)
	frames := max(0, int(seconds*float64(s.SampleRate)))
	return &mixer{
		rate:     s.SampleRate,
		channels: channels,
		attack:   s.Attack.Seconds(),
		release:  s.Release.Seconds(),
		buf:      make([]float64, frames*channels),
	}
}

func (m *mixer) frames() int {
	return len(m.buf) / m.channels
}

// add mixes a note into the buffer. Start and duration are in seconds.
func (m *mixer) add(midi int, start, duration, gain float64) {
	if midi < 0 || duration <= 0 {
		return
	}
	rate := float64(m.rate)
	first := int(start * rate)
	frames := m.frames()
	end := min(frames, first+int(duration*rate))
	if first < 0 || first >= frames || end <= first {
		return
	}
	w := 2 * math.Pi * Frequency(midi)
	for i := first; i < end; i++ {
		t := float64(i-first) / rate
		v := (math.Sin(w*t) + secondHarmonic*math.Sin(2*w*t)) * m.envelope(t, duration) * gain
		for c := 0; c < m.channels; c++ {
			m.buf[i*m.channels+c] += v
		}
	}
}

// envelope is a linear attack, flat sustain and linear release.
func (m *mixer) envelope(t, duration float64) float64 {
	switch {
	case t < m.attack:
		return t / m.attack
	case t > duration-m.release:
		return math.Max(0, (duration-t)/m.release)
	default:
		return 1
	}
}

// wav encodes the mix with the mixer's own channel count, which is never
// below one.
func (m *mixer) wav() []byte {
	return EncodeWAV(m.pcm(), m.rate, m.channels)
}

// pcm soft limits the mix and converts it to 16 bit samples.
func (m *mixer) pcm() []int16 {
	out := make([]int16, len(m.buf))
	for i, v := range m.buf {
		out[i] = toInt16(math.Tanh(softLimitDrive * v))
	}
	return out
}

func toInt16(v float64) int16 {
	s := math.Round(v * math.MaxInt16)
	switch {
	case s > math.MaxInt16:
		return math.MaxInt16
	case s < math.MinInt16:
		return math.MinInt16
	default:
		return int16(s)
	}
}
