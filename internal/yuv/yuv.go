// Package yuv converts RGB pixels to and from the BT.601 luminance plane
// the still-image watermark engine carries its payload in.
package yuv

import "image/color"

// https://github.com/opencv/opencv/blob/0e88b49a53842f0f7cdc4c61b98c283be7e5057c/modules/imgproc/src/opencl/color_yuv.cl#L148-L234

const (
	yr = 0.299
	yg = 0.587
	yb = 0.114
)

// Plane holds a decoded image's RGB samples alongside its BT.601 luminance
// plane. Y is recomputed from r/g/b on construction and mutated in place by
// the embedder; Build reconstructs RGB by distributing each pixel's Y delta
// equally across R, G and B, per spec §4.4.
type Plane struct {
	Width, Height int
	R, G, B       []uint8
	Y             []float64
}

// New extracts the BT.601 luminance plane from pixels laid out row-major,
// width*height long.
func New(pixels []color.Color, width, height int) *Plane {
	n := width * height
	p := &Plane{
		Width:  width,
		Height: height,
		R:      make([]uint8, n),
		G:      make([]uint8, n),
		B:      make([]uint8, n),
		Y:      make([]float64, n),
	}
	for i, px := range pixels {
		r32, g32, b32, _ := px.RGBA()
		r, g, b := uint8(r32>>8), uint8(g32>>8), uint8(b32>>8)
		p.R[i], p.G[i], p.B[i] = r, g, b
		p.Y[i] = yr*float64(r) + yg*float64(g) + yb*float64(b)
	}
	return p
}

// Build reconstructs RGBA pixels from the (possibly modified) luminance
// plane by applying each pixel's Y delta equally to R, G and B, clamped to
// [0,255]. Alpha is always opaque; the still engine never carries an alpha
// channel through the pipeline (spec §6: "alpha stripped").
func (p *Plane) Build() []color.RGBA {
	out := make([]color.RGBA, len(p.Y))
	for i := range out {
		delta := p.Y[i] - (yr*float64(p.R[i]) + yg*float64(p.G[i]) + yb*float64(p.B[i]))
		out[i] = color.RGBA{
			R: clamp8(float64(p.R[i]) + delta),
			G: clamp8(float64(p.G[i]) + delta),
			B: clamp8(float64(p.B[i]) + delta),
			A: 255,
		}
	}
	return out
}

// Luminance computes the BT.601 luma of a single RGB triple, used by
// internal/quality and internal/phash for their grayscale conversions.
func Luminance(r, g, b uint8) float64 {
	return yr*float64(r) + yg*float64(g) + yb*float64(b)
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
