// Package quality scores how much an embed altered an image: PSNR, MSE,
// and global/windowed SSIM (spec component C5). Statistics (mean,
// variance, covariance) are delegated to gonum.org/v1/gonum/stat, the same
// module the teacher already depends on for its SVD carrier
// (internal/svd/svd.go) — here exercised via its statistics package
// instead of its matrix-factorization one.
package quality

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gjp-labs/forensicmark/internal/yuv"
)

// ErrDimensionMismatch is returned when the two images being compared do
// not share dimensions.
var ErrDimensionMismatch = errors.New("quality: image dimensions differ")

// Metrics is the quality report spec §3's "Quality metrics" entity
// describes.
type Metrics struct {
	PSNR    float64
	SSIM    float64
	MSE     float64
	MaxDiff float64
}

// Indistinguishable reports whether m clears spec §3's perceptual
// threshold: PSNR >= 40 and SSIM >= 0.95.
func (m Metrics) Indistinguishable() bool {
	return m.PSNR >= 40 && m.SSIM >= 0.95
}

const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// Compare runs MSE/PSNR/global-SSIM over two equal-size RGB images, each
// given as flat R,G,B byte slices of the same width*height*3 length.
func Compare(widthA, heightA int, a []uint8, widthB, heightB int, b []uint8) (Metrics, error) {
	if widthA != widthB || heightA != heightB || len(a) != len(b) {
		return Metrics{}, ErrDimensionMismatch
	}

	mse, maxDiff := meanSquaredError(a, b)
	psnr := psnrFromMSE(mse)
	ssim := globalSSIM(a, b)

	return Metrics{PSNR: psnr, SSIM: ssim, MSE: mse, MaxDiff: maxDiff}, nil
}

func meanSquaredError(a, b []uint8) (mse, maxDiff float64) {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		if ad := math.Abs(d); ad > maxDiff {
			maxDiff = ad
		}
		sum += d * d
	}
	mse = sum / float64(len(a))
	return
}

// psnrFromMSE returns +Inf when mse is zero, per spec §4.5.
func psnrFromMSE(mse float64) float64 {
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10((255*255)/mse)
}

// populationVariance and populationCovariance rescale gonum's sample
// (n-1-denominator) moments down to the population (n-denominator) ones
// the SSIM formula's sigma terms assume; C1/C2 are additive, not
// multiplicative, so the two normalizations aren't interchangeable here.
func populationVariance(x []float64) float64 {
	n := float64(len(x))
	if n <= 1 {
		return 0
	}
	return stat.Variance(x, nil) * (n - 1) / n
}

func populationCovariance(x, y []float64) float64 {
	n := float64(len(x))
	if n <= 1 {
		return 0
	}
	return stat.Covariance(x, y, nil) * (n - 1) / n
}

func globalSSIM(a, b []uint8) float64 {
	fa := toFloat64(a)
	fb := toFloat64(b)

	mu0 := stat.Mean(fa, nil)
	mu1 := stat.Mean(fb, nil)
	var0 := populationVariance(fa)
	var1 := populationVariance(fb)
	cov := populationCovariance(fa, fb)

	num := (2*mu0*mu1 + ssimC1) * (2*cov + ssimC2)
	den := (mu0*mu0 + mu1*mu1 + ssimC1) * (var0 + var1 + ssimC2)
	return num / den
}

func toFloat64(b []uint8) []float64 {
	out := make([]float64, len(b))
	for i, v := range b {
		out[i] = float64(v)
	}
	return out
}

// WindowedSSIM tiles the BT.601 grayscale projection of two equal-size RGB
// images into non-overlapping windowSize x windowSize windows (8x8 by
// default) and averages per-window SSIM. Partial trailing windows that run
// off the image are skipped.
func WindowedSSIM(width, height int, a, b []uint8, windowSize int) (float64, error) {
	if len(a) != width*height*3 || len(b) != width*height*3 {
		return 0, ErrDimensionMismatch
	}

	grayA := toGray(a, width, height)
	grayB := toGray(b, width, height)

	var total float64
	var windows int
	for y0 := 0; y0+windowSize <= height; y0 += windowSize {
		for x0 := 0; x0+windowSize <= width; x0 += windowSize {
			wa := extractWindow(grayA, width, x0, y0, windowSize)
			wb := extractWindow(grayB, width, x0, y0, windowSize)
			total += windowSSIM(wa, wb)
			windows++
		}
	}
	if windows == 0 {
		return 0, nil
	}
	return total / float64(windows), nil
}

func toGray(rgb []uint8, width, height int) []float64 {
	out := make([]float64, width*height)
	for i := range out {
		out[i] = yuv.Luminance(rgb[i*3], rgb[i*3+1], rgb[i*3+2])
	}
	return out
}

func extractWindow(plane []float64, width, x0, y0, size int) []float64 {
	out := make([]float64, size*size)
	for dy := 0; dy < size; dy++ {
		row := (y0 + dy) * width
		copy(out[dy*size:(dy+1)*size], plane[row+x0:row+x0+size])
	}
	return out
}

func windowSSIM(a, b []float64) float64 {
	mu0 := stat.Mean(a, nil)
	mu1 := stat.Mean(b, nil)
	var0 := populationVariance(a)
	var1 := populationVariance(b)
	cov := populationCovariance(a, b)

	num := (2*mu0*mu1 + ssimC1) * (2*cov + ssimC2)
	den := (mu0*mu0 + mu1*mu1 + ssimC1) * (var0 + var1 + ssimC2)
	return num / den
}
