package music

import (
	"sort"

	"github.com/igolaizola/songseed/pkg/seed"
)

var progressions = [][]int{
	{0, 3, 4, 0},
	{0, 5, 3, 4},
	{0, 4, 5, 3},
	{0, 3, 0, 4},
}

const (
	melodyOctave  = 60
	bassOctave    = 36
	harmonyOctave = 60
	beatsPerChord = 4
)

// Compose builds a composition from a seed. The order of the random draws
// is part of the output format: changing it changes every song.
func Compose(s uint64) *Composition {
	rng := seed.NewRng(s)

	tempo := rng.Int(80, 140)
	key := rng.Int(0, 12)
	scale := Scale(rng.Int(0, 4))

	steps := scale.Semitones()
	progression := progressions[rng.Int(0, len(progressions))]

	var notes []Note

	// Melody
	beat := 0.0
	for _, degree := range progression {
		chord := triad(key, steps, degree)
		for i := 0; i < beatsPerChord; i++ {
			if rng.Float64() > 0.2 {
				pitch := chord[rng.Int(0, len(chord))] + melodyOctave
				duration := 1.0
				if rng.Float64() < 0.5 {
					duration = 0.5
				}
				notes = append(notes, Note{
					Pitch:         pitch,
					StartBeat:     beat,
					DurationBeats: duration,
					Velocity:      rng.Int(60, 100),
				})
			}
			beat++
		}
	}

	// Bass
	beat = 0.0
	for _, degree := range progression {
		pitch := key + steps[mod(degree, len(steps))] + bassOctave
		for i := 0; i < beatsPerChord; i++ {
			notes = append(notes, Note{
				Pitch:         pitch,
				StartBeat:     beat,
				DurationBeats: 1.0,
				Velocity:      rng.Int(70, 90),
			})
			beat++
		}
	}

	// Harmony, the triad twice per chord
	beat = 0.0
	for _, degree := range progression {
		chord := triad(key, steps, degree)
		for i := 0; i < 2; i++ {
			for _, p := range chord {
				notes = append(notes, Note{
					Pitch:         p + harmonyOctave,
					StartBeat:     beat,
					DurationBeats: 2.0,
					Velocity:      rng.Int(40, 60),
				})
			}
			beat += 2.0
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].StartBeat < notes[j].StartBeat
	})

	return &Composition{
		Tempo:       tempo,
		Key:         key,
		Scale:       scale,
		Progression: append([]int(nil), progression...),
		Notes:       notes,
	}
}

// triad returns root, third and fifth of the chord built on degree.
func triad(key int, steps []int, degree int) []int {
	n := len(steps)
	return []int{
		key + steps[mod(degree, n)],
		key + steps[mod(degree+2, n)],
		key + steps[mod(degree+4, n)],
	}
}

// mod is a floor modulo, never negative for positive n.
func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
