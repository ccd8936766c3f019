package image

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"
	"unicode"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	maxRunes    = 64
	ellipsis    = "…"
	placeholder = "—"
	minFontSize = 8.0
	// blurFactor is the downscale ratio used to blur the shadow.
	blurFactor = 4
)

var (
	fontsOnce   sync.Once
	fontsErr    error
	boldFont    *opentype.Font
	regularFont *opentype.Font
)

// loadFonts parses the embedded Go fonts once. Parsed fonts are shared,
// faces are created per render.
func loadFonts() error {
	fontsOnce.Do(func() {
		var err error
		if boldFont, err = opentype.Parse(gobold.TTF); err != nil {
			fontsErr = fmt.Errorf("image: couldn't parse bold font: %w", err)
			return
		}
		if regularFont, err = opentype.Parse(goregular.TTF); err != nil {
			fontsErr = fmt.Errorf("image: couldn't parse regular font: %w", err)
		}
	})
	return fontsErr
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("image: couldn't create font face: %w", err)
	}
	return face, nil
}

// Clean trims s, replaces empty strings with a dash and truncates long
// strings to 64 runes followed by an ellipsis.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return placeholder
	}
	r := []rune(s)
	if len(r) > maxRunes {
		return strings.TrimRightFunc(string(r[:maxRunes]), unicode.IsSpace) + ellipsis
	}
	return s
}

// fit shrinks the font until label fits in width. If it still doesn't fit
// at the minimum size the label is shortened.
func fit(f *opentype.Font, label string, size float64, width int) (font.Face, string, error) {
	size = math.Max(minFontSize, size)
	for {
		face, err := newFace(f, size)
		if err != nil {
			return nil, "", err
		}
		if font.MeasureString(face, label).Ceil() <= width {
			return face, label, nil
		}
		if size > minFontSize {
			face.Close()
			size = math.Max(minFontSize, size*0.9)
			continue
		}
		r := []rune(strings.TrimSuffix(label, ellipsis))
		for len(r) > 1 {
			r = r[:len(r)-1]
			label = strings.TrimRightFunc(string(r), unicode.IsSpace) + ellipsis
			if font.MeasureString(face, label).Ceil() <= width {
				break
			}
		}
		return face, label, nil
	}
}

// drawTitles draws the title at the top and the artist at the bottom.
func drawTitles(img *image.RGBA, title, artist string) error {
	if err := loadFonts(); err != nil {
		return err
	}
	size := img.Bounds().Dx()
	scale := float64(size) / baseSize
	margin := int(math.Round(40 * scale))
	width := size - 2*margin
	offset := max(1, int(math.Round(3*scale)))

	titleFace, titleLabel, err := fit(boldFont, Clean(title), 48*scale, width)
	if err != nil {
		return err
	}
	defer titleFace.Close()
	artistFace, artistLabel, err := fit(regularFont, Clean(artist), 28*scale, width)
	if err != nil {
		return err
	}
	defer artistFace.Close()

	titleY := int(math.Round(60*scale)) + titleFace.Metrics().Ascent.Ceil()
	artistY := size - int(math.Round(90*scale)) + artistFace.Metrics().Ascent.Ceil()

	drawStringWithShadow(img, titleLabel, titleFace, margin, titleY, offset)
	drawStringWithShadow(img, artistLabel, artistFace, margin, artistY, offset)
	return nil
}

// drawStringWithShadow draws label with its baseline at (x, y) over a
// blurred dark copy, in a colour that contrasts with the background.
func drawStringWithShadow(img *image.RGBA, label string, face font.Face, x, y, offset int) {
	textColor := chooseContrastingColor(calculateTextPixelsAverageColor(img, x, y, label, face))
	shadowColor := color.RGBA{0, 0, 0, 180}

	shadow := blurredMask(img.Bounds(), label, face, x+offset, y+offset)
	draw.DrawMask(img, img.Bounds(), image.NewUniform(shadowColor), image.Point{}, shadow, img.Bounds().Min, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}

// blurredMask renders label into an alpha mask and blurs it by scaling it
// down and back up.
func blurredMask(r image.Rectangle, label string, face font.Face, x, y int) *image.Alpha {
	mask := image.NewAlpha(r)
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)

	small := image.NewAlpha(image.Rect(0, 0, max(1, r.Dx()/blurFactor), max(1, r.Dy()/blurFactor)))
	xdraw.BiLinear.Scale(small, small.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)
	blurred := image.NewAlpha(r)
	xdraw.BiLinear.Scale(blurred, blurred.Bounds(), small, small.Bounds(), xdraw.Src, nil)
	return blurred
}

// calculateTextPixelsAverageColor calculates the average color of the
// pixels covered by the text letters.
func calculateTextPixelsAverageColor(img image.Image, x, y int, label string, face font.Face) color.Color {
	mask := image.NewAlpha(img.Bounds())
	dr := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	bounds, _ := dr.BoundString(label)
	dr.DrawString(label)

	area := image.Rect(bounds.Min.X.Floor(), bounds.Min.Y.Floor(), bounds.Max.X.Ceil(), bounds.Max.Y.Ceil())
	area = area.Intersect(mask.Bounds())

	var rTotal, gTotal, bTotal, count uint64
	for j := area.Min.Y; j < area.Max.Y; j++ {
		for i := area.Min.X; i < area.Max.X; i++ {
			if mask.AlphaAt(i, j).A > 0 {
				r, g, b, _ := img.At(i, j).RGBA()
				rTotal += uint64(r)
				gTotal += uint64(g)
				bTotal += uint64(b)
				count++
			}
		}
	}

	// Default to black if no text pixels are found
	if count == 0 {
		return color.RGBA{0, 0, 0, 255}
	}
	return color.RGBA{
		R: uint8(rTotal / count >> 8),
		G: uint8(gTotal / count >> 8),
		B: uint8(bTotal / count >> 8),
		A: 255,
	}
}

func chooseContrastingColor(bgColor color.Color) color.Color {
	r, g, b, _ := bgColor.RGBA()
	// Convert RGB from 16-bit to float for luminance calculation
	rLinear := linearize(float64(r) / 65535)
	gLinear := linearize(float64(g) / 65535)
	bLinear := linearize(float64(b) / 65535)

	// Relative luminance according to ITU-R BT.709
	luminance := 0.2126*rLinear + 0.7152*gLinear + 0.0722*bLinear

	if luminance > 0.179 {
		return color.RGBA{0, 0, 0, 255}
	}
	return color.RGBA{255, 255, 255, 255}
}

// linearize converts a color channel from sRGB to linear space
func linearize(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}
