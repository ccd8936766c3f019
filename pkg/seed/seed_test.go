package seed

import (
	"fmt"
	"testing"
)

func TestCombineDeterministic(t *testing.T) {
	tests := []struct {
		seed    uint64
		page    int
		index   int
		purpose string
	}{
		{1, 1, 1, "audio|en-US"},
		{0, 0, 0, ""},
		{^uint64(0), 7, 99, "cover|ru-RU"},
		{42, -3, -8, "likes|de-DE"},
	}
	for _, tt := range tests {
		a := Combine(tt.seed, tt.page, tt.index, tt.purpose)
		b := Combine(tt.seed, tt.page, tt.index, tt.purpose)
		if a != b {
			t.Fatalf("Combine(%d, %d, %d, %q) not deterministic: %d != %d", tt.seed, tt.page, tt.index, tt.purpose, a.Uint64(), b.Uint64())
		}
	}
}

func TestCombineKnownValues(t *testing.T) {
	tests := []struct {
		seed    uint64
		page    int
		index   int
		purpose string
		want    uint64
	}{
		{1, 1, 1, "audio|en-US", 9841506034315991252},
		{0, 0, 0, "", 1442695040911658884},
		{1, 5, 7, "cover|en-US", 10113236989445644937},
	}
	for _, tt := range tests {
		got := Combine(tt.seed, tt.page, tt.index, tt.purpose).Uint64()
		if got != tt.want {
			t.Fatalf("Combine(%d, %d, %d, %q) = %d; want %d", tt.seed, tt.page, tt.index, tt.purpose, got, tt.want)
		}
	}
}

func TestCombineClampsPageAndIndex(t *testing.T) {
	want := Combine(9, 1, 1, "song|en-US")
	for _, v := range []int{0, -1, -1000} {
		if got := Combine(9, v, v, "song|en-US"); got != want {
			t.Fatalf("Combine(9, %d, %d) = %d; want %d", v, v, got.Uint64(), want.Uint64())
		}
	}
}

func TestHashPurpose(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"", 0},
		{"   ", 0},
		{"a", 0xaf63dc4c8601ec8c},
		{"audio|en-US", 9045063267226443983},
	}
	for _, tt := range tests {
		if got := hashPurpose(tt.in); got != tt.want {
			t.Fatalf("hashPurpose(%q) = %#x; want %#x", tt.in, got, tt.want)
		}
	}
}

func TestDomainSeparation(t *testing.T) {
	collisions := 0
	total := 0
	for s := uint64(0); s < 50; s++ {
		for index := 1; index <= 20; index++ {
			total++
			audio := Combine(s, 1, index, "audio|en")
			cover := Combine(s, 1, index, "cover|en")
			if audio == cover {
				collisions++
			}
		}
	}
	if collisions != 0 {
		t.Fatalf("audio and cover seeds collided %d/%d times", collisions, total)
	}
}

func TestSingleInputChanges(t *testing.T) {
	base := Combine(100, 2, 3, "song|en-US")
	variants := map[string]Seed{
		"seed":    Combine(101, 2, 3, "song|en-US"),
		"page":    Combine(100, 3, 3, "song|en-US"),
		"index":   Combine(100, 2, 4, "song|en-US"),
		"purpose": Combine(100, 2, 3, "song|ru-RU"),
	}
	for name, v := range variants {
		if v == base {
			t.Fatalf("changing %s did not change the seed", name)
		}
	}
}

func TestDerive(t *testing.T) {
	got := Derive(1, 1, PurposeAudio, "en-US")
	want := Combine(1, 1, 1, "audio|en-US")
	if got != want {
		t.Fatalf("Derive() = %d; want %d", got.Uint64(), want.Uint64())
	}
	if Derive(1, 5, PurposeCover, "en-US") == Derive(1, 5, PurposeAudio, "en-US") {
		t.Fatal("cover and audio purposes derived the same seed")
	}
}

func TestPurposeTag(t *testing.T) {
	tests := []struct {
		p    Purpose
		want string
	}{
		{PurposeSong, "song|en-US"},
		{PurposeLikes, "likes|en-US"},
		{PurposeReview, "review|en-US"},
		{PurposeLyrics, "lyrics|en-US"},
		{PurposeCover, "cover|en-US"},
		{PurposeAudio, "audio|en-US"},
	}
	for _, tt := range tests {
		if got := tt.p.Tag("en-US"); got != tt.want {
			t.Fatalf("%v.Tag() = %q; want %q", tt.p, got, tt.want)
		}
	}
	if got := Purpose(99).String(); got != "purpose(99)" {
		t.Fatalf("Purpose(99).String() = %q", got)
	}
}

func TestLegacyCombine(t *testing.T) {
	if LegacyCombine(5, 0) != LegacyCombine(5, 1) {
		t.Fatal("LegacyCombine should clamp non-positive index to 1")
	}
	if LegacyCombine(5, 2) == LegacyCombine(5, 3) {
		t.Fatal("LegacyCombine should depend on the index")
	}
}

func ExampleCombine() {
	s := Combine(1, 1, 1, "audio|en-US")
	fmt.Println(s.Rng().Int(80, 140))
	// Output: 132
}
