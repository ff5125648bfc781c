// Package phash computes the three 64-bit perceptual hashes spec
// component C6 defines (aHash, dHash, pHash) plus their Hamming-distance
// similarity and acceptance ladder. Resizing goes through
// golang.org/x/image/draw, the resize implementation already pulled in
// for the image codec glue, rather than a hand-rolled box filter.
package phash

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"golang.org/x/image/draw"

	"github.com/gjp-labs/forensicmark/internal/yuv"
)

// Fingerprint is the triple spec §3 describes, each hash hex-rendered as
// 16 lowercase characters.
type Fingerprint struct {
	PHash string
	AHash string
	DHash string
}

// Compute builds a Fingerprint from an RGB image given as a flat
// width*height*3 byte slice.
func Compute(width, height int, rgb []uint8) Fingerprint {
	gray := grayImage(width, height, rgb)
	return Fingerprint{
		PHash: fmt.Sprintf("%016x", pHashBits(gray)),
		AHash: fmt.Sprintf("%016x", aHashBits(gray)),
		DHash: fmt.Sprintf("%016x", dHashBits(gray)),
	}
}

func grayImage(width, height int, rgb []uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 3
			l := yuv.Luminance(rgb[i], rgb[i+1], rgb[i+2])
			img.SetGray(x, y, color.Gray{Y: roundClamp(l)})
		}
	}
	return img
}

func roundClamp(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func resize(src *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// aHashBits resizes to 8x8 grayscale and thresholds each pixel at the
// sample mean; bit order is row-major MSB-first.
func aHashBits(src *image.Gray) uint64 {
	small := resize(src, 8, 8)
	vals := grayValues(small, 8, 8)

	var sum int
	for _, v := range vals {
		sum += int(v)
	}
	mean := float64(sum) / float64(len(vals))

	var bits uint64
	for i, v := range vals {
		if float64(v) >= mean {
			bits |= 1 << uint(63-i)
		}
	}
	return bits
}

// dHashBits resizes to 9x8 grayscale and emits the sign of each horizontal
// neighbor difference, 8 rows x 8 comparisons.
func dHashBits(src *image.Gray) uint64 {
	small := resize(src, 9, 8)
	var bits uint64
	pos := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			left := small.GrayAt(x, y).Y
			right := small.GrayAt(x+1, y).Y
			if right > left {
				bits |= 1 << uint(63-pos)
			}
			pos++
		}
	}
	return bits
}

// pHashBits resizes to 32x32 grayscale, partitions into an 8x8 grid of
// 4x4 tiles, takes each tile's mean as a low-frequency proxy, then
// thresholds every cell except the top-left (DC-equivalent) one at the
// median of the remaining 63 values.
func pHashBits(src *image.Gray) uint64 {
	small := resize(src, 32, 32)

	means := make([]float64, 64)
	for ty := 0; ty < 8; ty++ {
		for tx := 0; tx < 8; tx++ {
			var sum int
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 4; dx++ {
					sum += int(small.GrayAt(tx*4+dx, ty*4+dy).Y)
				}
			}
			means[ty*8+tx] = float64(sum) / 16
		}
	}

	rest := append([]float64{}, means[1:]...)
	median := medianOf(rest)

	var bits uint64
	bits |= 1 << 63 // top-left cell always set, matching its DC role
	for i := 1; i < 64; i++ {
		if means[i] >= median {
			bits |= 1 << uint(63-i)
		}
	}
	return bits
}

func medianOf(vals []float64) float64 {
	sorted := append([]float64{}, vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func grayValues(img *image.Gray, w, h int) []uint8 {
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = img.GrayAt(x, y).Y
		}
	}
	return out
}

// Hamming returns the Hamming distance between two 64-bit hashes.
func Hamming(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		count++
		x &= x - 1
	}
	return count
}

// HexToUint64 parses a 16-character lowercase-hex hash back into a uint64.
func HexToUint64(hex string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(hex, "%016x", &v)
	return v, err
}

// Acceptance is the similarity ladder spec §4.6 fixes.
type Acceptance string

const (
	Excellent Acceptance = "EXCELLENT"
	Good      Acceptance = "GOOD"
	Fair      Acceptance = "FAIR"
	Marginal  Acceptance = "MARGINAL"
	None      Acceptance = "NONE"
)

// Similarity computes per-hash similarity ((64-distance)/64) and the
// weighted combined similarity 0.3*pHash + 0.2*aHash + 0.5*dHash.
func Similarity(a, b Fingerprint) (combined float64, acceptance Acceptance, err error) {
	pa, err := HexToUint64(a.PHash)
	if err != nil {
		return 0, None, err
	}
	pb, err := HexToUint64(b.PHash)
	if err != nil {
		return 0, None, err
	}
	aa, err := HexToUint64(a.AHash)
	if err != nil {
		return 0, None, err
	}
	ab, err := HexToUint64(b.AHash)
	if err != nil {
		return 0, None, err
	}
	da, err := HexToUint64(a.DHash)
	if err != nil {
		return 0, None, err
	}
	db, err := HexToUint64(b.DHash)
	if err != nil {
		return 0, None, err
	}

	pSim := 1 - float64(Hamming(pa, pb))/64
	aSim := 1 - float64(Hamming(aa, ab))/64
	dSim := 1 - float64(Hamming(da, db))/64

	combined = 0.3*pSim + 0.2*aSim + 0.5*dSim
	acceptance = ladder(combined)
	return combined, acceptance, nil
}

func ladder(combined float64) Acceptance {
	switch {
	case combined >= 0.95:
		return Excellent
	case combined >= 0.90:
		return Good
	case combined >= 0.85:
		return Fair
	case combined >= 0.75:
		return Marginal
	default:
		return None
	}
}

// IsMatch reports whether combined similarity clears the default detection
// threshold of 0.85.
func IsMatch(combined float64) bool { return combined >= 0.85 }
