package seed

import (
	"strings"
)

// Mixing constants. All of them are odd so every term keeps full period
// under 64-bit wraparound.
const (
	mulSeed    uint64 = 6364136223846793005
	mulPage    uint64 = 1442695040888963407
	mulIndex   uint64 = 22695477
	mulPurpose uint64 = 1103515245
)

// FNV-1a 64-bit parameters.
const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

// Seed is a derived 64-bit seed. The zero value is valid but only
// Combine, Derive and LegacyCombine produce meaningful seeds.
type Seed struct {
	v uint64
}

// Uint64 returns the raw seed value.
func (s Seed) Uint64() uint64 {
	return s.v
}

// Rng returns a fresh generator seeded with s.
func (s Seed) Rng() *Rng {
	return NewRng(s.v)
}

// Combine mixes a user seed with page, index and a purpose string into a
// derived seed. Non-positive page and index values are treated as 1.
// Overflow wraps around.
func Combine(userSeed uint64, page, index int, purpose string) Seed {
	p := uint64(max(1, page))
	i := uint64(max(1, index))
	h := hashPurpose(purpose)
	return Seed{v: mulSeed*userSeed + mulPage*p + mulIndex*i + mulPurpose*h}
}

// Derive returns the seed used for one artifact of the song at index.
// The page is fixed so that list, detail and artifact endpoints agree on
// the same song regardless of pagination.
func Derive(userSeed uint64, index int, purpose Purpose, locale string) Seed {
	return Combine(userSeed, 1, index, purpose.Tag(locale))
}

// LegacyCombine mixes a user seed with a page or index only.
//
// Deprecated: streams derived with LegacyCombine are correlated across
// artifacts of the same index. Use Combine or Derive.
func LegacyCombine(userSeed uint64, pageOrIndex int) Seed {
	i := uint64(max(1, pageOrIndex))
	return Seed{v: mulSeed*userSeed + mulPage*i}
}

func hashPurpose(purpose string) uint64 {
	if strings.TrimSpace(purpose) == "" {
		return 0
	}
	h := fnvOffset
	for i := 0; i < len(purpose); i++ {
		h ^= uint64(purpose[i])
		h *= fnvPrime
	}
	return h
}
