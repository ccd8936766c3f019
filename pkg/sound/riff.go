package sound

import (
	"math"

	"github.com/igolaizola/songseed/pkg/seed"
)

const (
	leadGain = 0.32
	bassGain = 0.18
	// stepsPerChord is one bar of sixteenth notes.
	stepsPerChord = 16
)

var (
	riffMajor = []int{0, 2, 4, 5, 7, 9, 11}
	riffMinor = []int{0, 2, 3, 5, 7, 8, 10}

	// Chords as scale degrees: I V vi IV and i VII VI VII.
	riffMajorChords = [][]int{{0, 2, 4}, {4, 6, 1}, {5, 0, 2}, {3, 5, 0}}
	riffMinorChords = [][]int{{0, 2, 4}, {6, 1, 3}, {5, 0, 2}, {6, 1, 3}}
)

// riffParams holds the parameters drawn for a short preview riff.
type riffParams struct {
	Seconds int
	BPM     int
	Root    int
	Minor   bool
}

// RenderRiff synthesizes a 6 to 10 second riff on a sixteenth-note grid
// with a lead and a bass voice. It doesn't use a composition, every choice
// is drawn from the seed.
func (s *Synthesizer) RenderRiff(sd uint64) []byte {
	_, m := s.riff(sd)
	return m.wav()
}

func (s *Synthesizer) riff(sd uint64) (riffParams, *mixer) {
	rng := seed.NewRng(sd)

	r := riffParams{
		Seconds: rng.Int(6, 11),
		BPM:     rng.Int(90, 151),
		Root:    rng.Int(48, 61),
		Minor:   rng.Float64() < 0.45,
	}

	scale, chords := riffMajor, riffMajorChords
	if r.Minor {
		scale, chords = riffMinor, riffMinorChords
	}

	stepSec := 60.0 / float64(r.BPM) / 4.0
	totalSteps := int(math.Floor(float64(r.Seconds) / stepSec))

	m := s.newMixer(float64(r.Seconds))
	last := r.Root

	for step := 0; step < totalSteps; step++ {
		chord := chords[(step/stepsPerChord)%len(chords)]

		strong := step%4 == 0
		medium := step%2 == 0

		prob := 0.22
		switch {
		case strong:
			prob = 0.92
		case medium:
			prob = 0.55
		}
		play := rng.Float64() < prob
		bassPlay := strong && rng.Float64() < 0.95

		lead, bass := -1, -1
		if play {
			chordTone := 0.65
			if strong {
				chordTone = 0.90
			}
			var degree int
			if rng.Float64() < chordTone {
				degree = chord[rng.Int(0, len(chord))]
			} else {
				degree = rng.Int(0, len(scale))
			}
			octave := 24
			if rng.Float64() < 0.60 {
				octave = 12
			}
			lead = r.Root + scale[degree%len(scale)] + octave

			// Pull large leaps back towards the previous note
			if rng.Float64() < 0.35 {
				switch diff := lead - last; {
				case diff > 5:
					lead -= 12
				case diff < -5:
					lead += 12
				}
			}
			last = lead
		}
		if bassPlay {
			bass = r.Root + scale[chord[0]%len(scale)]
		}

		steps := 1
		switch {
		case strong:
			steps = 2
			if rng.Float64() < 0.55 {
				steps = 4
			}
		case medium && rng.Float64() < 0.25:
			steps = 2
		}

		start := float64(step) * stepSec
		duration := float64(steps) * stepSec
		m.add(lead, start, duration, leadGain)
		m.add(bass, start, duration, bassGain)
	}
	return r, m
}
