package music

import (
	"fmt"
	"time"
)

// Scale is the scale family of a composition.
type Scale int

const (
	Major Scale = iota
	Minor
	Pentatonic
	Blues
)

func (s Scale) String() string {
	switch s {
	case Major:
		return "major"
	case Minor:
		return "minor"
	case Pentatonic:
		return "pentatonic"
	case Blues:
		return "blues"
	default:
		return fmt.Sprintf("scale(%d)", int(s))
	}
}

// Semitones returns the semitone offsets of the scale.
func (s Scale) Semitones() []int {
	switch s {
	case Minor:
		return []int{0, 2, 3, 5, 7, 8, 10}
	case Pentatonic:
		return []int{0, 2, 4, 7, 9}
	case Blues:
		return []int{0, 3, 5, 6, 7, 10}
	default:
		return []int{0, 2, 4, 5, 7, 9, 11}
	}
}

// Note is a single MIDI-like note event.
type Note struct {
	Pitch         int     `json:"pitch"`
	StartBeat     float64 `json:"start_beat"`
	DurationBeats float64 `json:"duration_beats"`
	Velocity      int     `json:"velocity"`
}

// End returns the beat where the note stops sounding.
func (n Note) End() float64 {
	return n.StartBeat + n.DurationBeats
}

// Composition is a short generated piece. Notes are sorted by start beat.
type Composition struct {
	Tempo       int    `json:"tempo"`
	Key         int    `json:"key"`
	Scale       Scale  `json:"scale"`
	Progression []int  `json:"progression"`
	Notes       []Note `json:"notes"`
}

// Beats returns the length of the composition in beats.
func (c *Composition) Beats() float64 {
	var end float64
	for _, n := range c.Notes {
		if e := n.End(); e > end {
			end = e
		}
	}
	return end
}

// SecondsPerBeat returns the beat length at the composition tempo.
func (c *Composition) SecondsPerBeat() float64 {
	return 60.0 / float64(c.Tempo)
}

// Duration returns the playing time of the composition.
func (c *Composition) Duration() time.Duration {
	return time.Duration(c.Beats() * c.SecondsPerBeat() * float64(time.Second))
}

var keyNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func (c *Composition) String() string {
	return fmt.Sprintf("%s %s %d BPM (%d notes)", keyNames[mod(c.Key, 12)], c.Scale, c.Tempo, len(c.Notes))
}
