package image

import (
	"image"
	"image/color"
	"math"

	"github.com/igolaizola/songseed/pkg/seed"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Pattern is a family of translucent shapes drawn over the background.
type Pattern int

const (
	Ellipses Pattern = iota
	Lines
	Rectangles
)

func (p Pattern) String() string {
	switch p {
	case Ellipses:
		return "ellipses"
	case Lines:
		return "lines"
	case Rectangles:
		return "rectangles"
	default:
		return "unknown"
	}
}

// drawPattern draws one pattern family. Geometry is expressed for a 512px
// canvas and multiplied by scale.
func drawPattern(img *image.RGBA, rng *seed.Rng, scale float64) Pattern {
	size := baseSize
	sh := newShape(img)
	mode := Pattern(rng.Int(0, 3))
	switch mode {
	case Ellipses:
		count := rng.Int(8, 18)
		for i := 0; i < count; i++ {
			radius := float64(rng.Int(20, 120))
			x := float64(rng.Int(-50, size+50))
			y := float64(rng.Int(-50, size+50))
			c := randomColor(rng)
			alpha := 0.12 + rng.Float64()*0.18
			fillCircle(sh, x*scale, y*scale, radius*scale, c, alpha)
		}
	case Lines:
		count := rng.Int(10, 22)
		for i := 0; i < count; i++ {
			thickness := 1 + rng.Float64()*6
			c := randomColor(rng)
			alpha := 0.10 + rng.Float64()*0.15
			y := float64(rng.Int(-size, size))
			strokeDiagonal(sh, y*scale, thickness*scale, c, alpha)
		}
	default:
		count := rng.Int(10, 20)
		for i := 0; i < count; i++ {
			w := float64(rng.Int(40, 220))
			h := float64(rng.Int(20, 160))
			x := float64(rng.Int(-30, size-10))
			y := float64(rng.Int(-30, size-10))
			c := randomColor(rng)
			alpha := 0.10 + rng.Float64()*0.18
			fillRect(sh, x*scale, y*scale, w*scale, h*scale, c, alpha)
		}
	}
	return mode
}

// fillGradient fills img with a linear gradient from the top left corner
// to the bottom right corner.
func fillGradient(img *image.RGBA, from, to color.RGBA) {
	b := img.Bounds()
	span := float64(b.Dx() + b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			t := (float64(x-b.Min.X) + float64(y-b.Min.Y) + 1) / span
			t = math.Min(1, math.Max(0, t))
			img.SetRGBA(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 255,
			})
		}
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func fillOverlay(img *image.RGBA, alpha uint8) {
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{A: alpha}), image.Point{}, draw.Over)
}

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522847498

// shape rasterizes paths over the whole canvas and composites them with
// draw.Over.
type shape struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

func newShape(img *image.RGBA) *shape {
	b := img.Bounds()
	return &shape{img: img, z: vector.NewRasterizer(b.Dx(), b.Dy())}
}

// fill composites the current path with color c at the given opacity and
// starts a new path.
func (s *shape) fill(c color.RGBA, alpha float64) {
	a := uint8(math.Round(math.Min(1, math.Max(0, alpha)) * 255))
	src := image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: a})
	b := s.img.Bounds()
	s.z.Draw(s.img, b, src, image.Point{})
	s.z.Reset(b.Dx(), b.Dy())
}

func (s *shape) polygon(pts ...[2]float64) {
	s.z.MoveTo(float32(pts[0][0]), float32(pts[0][1]))
	for _, p := range pts[1:] {
		s.z.LineTo(float32(p[0]), float32(p[1]))
	}
	s.z.ClosePath()
}

// fillCircle draws an anti-aliased disc.
func fillCircle(s *shape, cx, cy, r float64, c color.RGBA, alpha float64) {
	k := r * kappa
	z := s.z
	f := func(v float64) float32 { return float32(v) }
	z.MoveTo(f(cx+r), f(cy))
	z.CubeTo(f(cx+r), f(cy+k), f(cx+k), f(cy+r), f(cx), f(cy+r))
	z.CubeTo(f(cx-k), f(cy+r), f(cx-r), f(cy+k), f(cx-r), f(cy))
	z.CubeTo(f(cx-r), f(cy-k), f(cx-k), f(cy-r), f(cx), f(cy-r))
	z.CubeTo(f(cx+k), f(cy-r), f(cx+r), f(cy-k), f(cx+r), f(cy))
	z.ClosePath()
	s.fill(c, alpha)
}

// strokeDiagonal draws a band along the line y = x + y0.
func strokeDiagonal(s *shape, y0, thickness float64, c color.RGBA, alpha float64) {
	w := float64(s.img.Bounds().Dx())
	// Offset perpendicular to the line, split between both axes
	off := thickness / 2 / math.Sqrt2
	from, to := -w, 2*w
	s.polygon(
		[2]float64{from + off, y0 + from - off},
		[2]float64{to + off, y0 + to - off},
		[2]float64{to - off, y0 + to + off},
		[2]float64{from - off, y0 + from + off},
	)
	s.fill(c, alpha)
}

func fillRect(s *shape, x, y, w, h float64, c color.RGBA, alpha float64) {
	s.polygon(
		[2]float64{x, y},
		[2]float64{x + w, y},
		[2]float64{x + w, y + h},
		[2]float64{x, y + h},
	)
	s.fill(c, alpha)
}
