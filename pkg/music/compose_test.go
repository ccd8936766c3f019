package music

import (
	"reflect"
	"testing"
	"time"
)

func TestComposeRegression(t *testing.T) {
	c := Compose(9841506034315991252)
	if c.Tempo != 132 || c.Key != 3 || c.Scale != Minor {
		t.Fatalf("Compose() = %s; want D# minor 132 BPM", c)
	}
	if !reflect.DeepEqual(c.Progression, []int{0, 3, 4, 0}) {
		t.Fatalf("Progression = %v; want [0 3 4 0]", c.Progression)
	}
	if len(c.Notes) != 53 {
		t.Fatalf("len(Notes) = %d; want 53", len(c.Notes))
	}
	want := []Note{
		{Pitch: 63, StartBeat: 0, DurationBeats: 0.5, Velocity: 99},
		{Pitch: 39, StartBeat: 0, DurationBeats: 1, Velocity: 81},
		{Pitch: 63, StartBeat: 0, DurationBeats: 2, Velocity: 47},
	}
	if !reflect.DeepEqual(c.Notes[:3], want) {
		t.Fatalf("Notes[:3] = %v; want %v", c.Notes[:3], want)
	}
}

func TestComposeDeterministic(t *testing.T) {
	for _, s := range []uint64{0, 1, 42, 1 << 63, ^uint64(0)} {
		a := Compose(s)
		b := Compose(s)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("Compose(%d) is not deterministic", s)
		}
	}
}

func TestComposeValidity(t *testing.T) {
	for s := uint64(0); s < 500; s++ {
		c := Compose(s)
		if c.Tempo < 80 || c.Tempo >= 140 {
			t.Fatalf("Compose(%d).Tempo = %d", s, c.Tempo)
		}
		if c.Key < 0 || c.Key > 11 {
			t.Fatalf("Compose(%d).Key = %d", s, c.Key)
		}
		// 16 bass notes and 24 harmony notes are always present.
		if len(c.Notes) < 40 || len(c.Notes) > 56 {
			t.Fatalf("Compose(%d) has %d notes", s, len(c.Notes))
		}
		prev := -1.0
		for i, n := range c.Notes {
			if n.DurationBeats <= 0 {
				t.Fatalf("Compose(%d).Notes[%d] has duration %v", s, i, n.DurationBeats)
			}
			if n.Pitch < 0 || n.Pitch > 127 {
				t.Fatalf("Compose(%d).Notes[%d] has pitch %d", s, i, n.Pitch)
			}
			if n.Velocity < 0 || n.Velocity > 127 {
				t.Fatalf("Compose(%d).Notes[%d] has velocity %d", s, i, n.Velocity)
			}
			if n.StartBeat < prev {
				t.Fatalf("Compose(%d) notes not sorted at %d", s, i)
			}
			prev = n.StartBeat
		}
		if c.Beats() != 16 {
			t.Fatalf("Compose(%d).Beats() = %v; want 16", s, c.Beats())
		}
	}
}

func TestComposeTieOrder(t *testing.T) {
	// At beat 0 the bass note always precedes the harmony triad and any
	// melody note precedes the bass.
	for s := uint64(0); s < 100; s++ {
		c := Compose(s)
		var atZero []Note
		for _, n := range c.Notes {
			if n.StartBeat == 0 {
				atZero = append(atZero, n)
			}
		}
		tail := atZero[len(atZero)-4:]
		if tail[0].DurationBeats != 1 {
			t.Fatalf("Compose(%d): bass note not before harmony at beat 0: %v", s, atZero)
		}
		for _, n := range tail[1:] {
			if n.DurationBeats != 2 {
				t.Fatalf("Compose(%d): harmony notes out of order at beat 0: %v", s, atZero)
			}
		}
	}
}

func TestTriadWraps(t *testing.T) {
	steps := Pentatonic.Semitones()
	got := triad(0, steps, 5)
	want := []int{0, 4, 9}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("triad(0, pentatonic, 5) = %v; want %v", got, want)
	}
}

func TestMod(t *testing.T) {
	tests := []struct{ a, n, want int }{
		{7, 5, 2},
		{-1, 5, 4},
		{-5, 5, 0},
		{0, 6, 0},
	}
	for _, tt := range tests {
		if got := mod(tt.a, tt.n); got != tt.want {
			t.Fatalf("mod(%d, %d) = %d; want %d", tt.a, tt.n, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	c := &Composition{Tempo: 120, Notes: []Note{{Pitch: 60, StartBeat: 0, DurationBeats: 4}}}
	if got := c.Duration(); got != 2*time.Second {
		t.Fatalf("Duration() = %v; want 2s", got)
	}
}

func TestScaleString(t *testing.T) {
	tests := []struct {
		s    Scale
		want string
	}{
		{Major, "major"},
		{Minor, "minor"},
		{Pentatonic, "pentatonic"},
		{Blues, "blues"},
		{Scale(9), "scale(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Fatalf("Scale(%d).String() = %q; want %q", int(tt.s), got, tt.want)
		}
	}
}
