// Package dct implements the separable 2-D DCT-II / IDCT-II transform the
// still-image and video watermark engines run on 8x8 (or, for the
// parameter admitted by spec §4.1, NxN) luminance blocks.
package dct

import (
	"math"
	"sync"
)

// basis holds the precomputed 2-D cosine basis for one block size. Building
// it is O(n^4); every caller for a given n shares one basis via the
// process-global table below, matching spec §5's requirement that
// precomputed cosine tables be process-global, read-only, and safely
// visible to concurrent callers once filled.
type basis struct {
	n   int
	phi []float64 // phi[i*n*n*n + j*n*n + x*n + y]
}

func build(n int) *basis {
	nf := float64(n)
	phi1 := make([]float64, n*n)
	for j := 0; j < n; j++ {
		phi1[j] = 1.0 / math.Sqrt(nf)
	}
	for i := 1; i < n; i++ {
		for j := 0; j < n; j++ {
			phi1[i*n+j] = math.Sqrt(2.0/nf) *
				math.Cos((float64(i)*math.Pi*(float64(j)*2+1))/(2.0*nf))
		}
	}

	b := &basis{n: n, phi: make([]float64, n*n*n*n)}
	for i := 0; i < n; i++ { // coefficient row
		for j := 0; j < n; j++ { // coefficient column
			for x := 0; x < n; x++ { // input row
				for y := 0; y < n; y++ { // input column
					b.phi[i*n*n*n+j*n*n+x*n+y] = phi1[i*n+x] * phi1[j*n+y]
				}
			}
		}
	}
	return b
}

var tables sync.Map // int(n) -> *basis

func basisFor(n int) *basis {
	if v, ok := tables.Load(n); ok {
		return v.(*basis)
	}
	b := build(n)
	actual, _ := tables.LoadOrStore(n, b)
	return actual.(*basis)
}

// Block is a square array of spatial- or frequency-domain samples, laid out
// row-major, n*n long.
type Block struct {
	n     int
	basis *basis
}

// New returns a transformer for n x n blocks. n is expected to be 8 in
// production; the transform itself places no constraint on n beyond n>=1.
func New(n int) *Block {
	return &Block{n: n, basis: basisFor(n)}
}

// Forward computes the 2-D DCT-II of a level-shifted spatial block,
// returning the frequency-domain coefficients in a new slice. data must be
// n*n long; it is not modified.
func (blk *Block) Forward(data []float64) []float64 {
	n := blk.n
	phi := blk.basis.phi
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for x := 0; x < n; x++ {
				for y := 0; y < n; y++ {
					sum += phi[i*n*n*n+j*n*n+x*n+y] * data[x*n+y]
				}
			}
			out[i*n+j] = sum
		}
	}
	return out
}

// Inverse computes the 2-D IDCT-II of coefficients, writing the spatial
// (still level-shifted) result into dst, which must be n*n long.
func (blk *Block) Inverse(coeffs []float64, dst []float64) {
	n := blk.n
	phi := blk.basis.phi
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for x := 0; x < n; x++ {
				for y := 0; y < n; y++ {
					sum += phi[x*n*n*n+y*n*n+i*n+j] * coeffs[x*n+y]
				}
			}
			dst[i*n+j] = sum
		}
	}
}

// LevelShift maps an 8-bit sample into the signed range DCT expects.
func LevelShift(p uint8) float64 { return float64(p) - 128 }

// InverseLevelShift maps a shifted, transformed sample back to [0,255],
// rounding and clamping per spec §4.1.
func InverseLevelShift(v float64) uint8 {
	r := math.Round(v + 128)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}

// ExtractBlock reads an n x n block starting at (x0,y0) from a row-major
// plane of the given width/height. Indices that fall outside the plane read
// as 0, per spec §4.1 ("extraction... reads out-of-bounds indices as 0").
func ExtractBlock(plane []float64, width, height, n, x0, y0 int) []float64 {
	out := make([]float64, n*n)
	for dy := 0; dy < n; dy++ {
		y := y0 + dy
		if y < 0 || y >= height {
			continue
		}
		row := y * width
		for dx := 0; dx < n; dx++ {
			x := x0 + dx
			if x < 0 || x >= width {
				continue
			}
			out[dy*n+dx] = plane[row+x]
		}
	}
	return out
}

// WriteBlock writes an n x n block back into a row-major plane at (x0,y0).
// Per spec §4.1, only whole blocks that fit strictly within the plane are
// written; partial blocks are left untouched by the caller (this function
// assumes the caller already checked the fit).
func WriteBlock(plane []float64, width, n, x0, y0 int, block []float64) {
	for dy := 0; dy < n; dy++ {
		row := (y0 + dy) * width
		copy(plane[row+x0:row+x0+n], block[dy*n:(dy+1)*n])
	}
}
