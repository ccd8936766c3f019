package image

import (
	"fmt"
	"image"
	"image/color"

	"github.com/igolaizola/songseed/pkg/seed"
)

const (
	DefaultSize = 256
	MinSize     = 128
	MaxSize     = 800

	// baseSize is the size the pattern geometry is designed for.
	baseSize = 512
	// textThreshold is the size from which the dark overlay is applied.
	textThreshold = 160
	overlayAlpha  = 110
)

// ClampSize returns the default size for zero and clamps everything else
// into [MinSize, MaxSize].
func ClampSize(size int) int {
	if size == 0 {
		return DefaultSize
	}
	return min(MaxSize, max(MinSize, size))
}

// Cover draws the cover of a song. The same inputs always produce the same
// pixels. Title and artist are drawn as given, they are not generated here.
func Cover(s uint64, title, artist string, size int) (*image.RGBA, error) {
	size = ClampSize(size)
	rng := seed.NewRng(s)
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	bg1 := randomColor(rng)
	bg2 := randomColor(rng)
	fillGradient(img, bg1, bg2)

	drawPattern(img, rng, float64(size)/baseSize)

	if size >= textThreshold {
		fillOverlay(img, overlayAlpha)
	}

	if err := drawTitles(img, title, artist); err != nil {
		return nil, err
	}
	return img, nil
}

// RenderCover draws the cover and encodes it as PNG.
func RenderCover(s uint64, title, artist string, size int) ([]byte, error) {
	img, err := Cover(s, title, artist, size)
	if err != nil {
		return nil, err
	}
	b, err := EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("image: couldn't encode cover: %w", err)
	}
	return b, nil
}

func randomColor(rng *seed.Rng) color.RGBA {
	return color.RGBA{
		R: uint8(rng.Int(30, 226)),
		G: uint8(rng.Int(30, 226)),
		B: uint8(rng.Int(30, 226)),
		A: 255,
	}
}
