// Package qim implements the quantization-index-modulation embed/extract
// pass (spec component C4): one DCT coefficient per 8x8 luminance block,
// chosen by a hopper.Schedule, is nudged to an odd or even multiple of a
// strength-derived step so its parity encodes one payload bit. The
// row-major block walk follows the teacher's internal/watermark.Embed/Extract
// (internal/watermark/watermark.go), generalized from its wavelet+SVD
// carrier to a direct single-coefficient DCT carrier. Blocks are processed
// serially on the calling goroutine, luminance plane only.
package qim

import (
	"context"
	"errors"
	"math"

	"github.com/gjp-labs/forensicmark/internal/dct"
	"github.com/gjp-labs/forensicmark/internal/hopper"
	"github.com/gjp-labs/forensicmark/internal/yuv"
)

// ErrCapacityExceeded is returned when the bit payload does not fit the
// available complete blockSize x blockSize blocks.
var ErrCapacityExceeded = errors.New("qim: payload exceeds block capacity")

// BlockSize is the fixed DCT block side spec §4.1 fixes in production.
const BlockSize = 8

// TotalBlocks returns the number of complete blockSize x blockSize blocks a
// width x height plane holds, row-major.
func TotalBlocks(width, height, blockSize int) int {
	return (width / blockSize) * (height / blockSize)
}

func blockOrigin(i, width, blockSize int) (x0, y0 int) {
	cols := width / blockSize
	col := i % cols
	row := i / cols
	return col * blockSize, row * blockSize
}

func delta(strength float64) float64 { return strength * 255 }

func sign(k int) int {
	if k < 0 {
		return -1
	}
	return 1
}

// Embed writes one bit per block into plane.Y in place, following the
// hopper-selected coefficient at each block. len(bits) must not exceed
// TotalBlocks(plane.Width, plane.Height, blockSize); embedding aborts with
// ErrCapacityExceeded otherwise and leaves plane untouched. ctx is checked
// between blocks, per spec §5's cooperative-cancellation requirement; a
// cancelled context aborts with ctx.Err() and leaves the blocks written so
// far in place, so unlike a CapacityExceeded abort the plane may be
// partially modified.
func Embed(ctx context.Context, plane *yuv.Plane, bits []bool, sched *hopper.Schedule, strength float64, blockSize int) error {
	total := TotalBlocks(plane.Width, plane.Height, blockSize)
	if len(bits) > total {
		return ErrCapacityExceeded
	}

	d := delta(strength)
	blk := dct.New(blockSize)

	for i, bit := range bits {
		if err := ctx.Err(); err != nil {
			return err
		}
		x0, y0 := blockOrigin(i, plane.Width, blockSize)
		spatial := dct.ExtractBlock(plane.Y, plane.Width, plane.Height, blockSize, x0, y0)
		for j := range spatial {
			spatial[j] = dct.LevelShift(roundClamp255(spatial[j]))
		}
		coeffs := blk.Forward(spatial)

		c := sched.Position(i)
		idx := c.Row*blockSize + c.Col

		k := int(math.Round(coeffs[idx] / d))
		want := 0
		if bit {
			want = 1
		}
		if absInt(k)%2 != want {
			k += sign(k)
		}
		s := sign(k)
		if k == 0 {
			s = 1
		}
		coeffs[idx] = float64(s) * float64(absInt(k)) * d

		out := make([]float64, blockSize*blockSize)
		blk.Inverse(coeffs, out)
		for j := range out {
			out[j] = float64(dct.InverseLevelShift(out[j]))
		}
		dct.WriteBlock(plane.Y, plane.Width, blockSize, x0, y0, out)
	}
	return nil
}

// Extract reads numBits bits back out of plane.Y following the same
// hopper schedule Embed used. ctx is checked between blocks, same as
// Embed.
func Extract(ctx context.Context, plane *yuv.Plane, numBits int, sched *hopper.Schedule, strength float64, blockSize int) ([]bool, error) {
	d := delta(strength)
	blk := dct.New(blockSize)
	bits := make([]bool, numBits)

	for i := 0; i < numBits; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x0, y0 := blockOrigin(i, plane.Width, blockSize)
		spatial := dct.ExtractBlock(plane.Y, plane.Width, plane.Height, blockSize, x0, y0)
		for j := range spatial {
			spatial[j] = dct.LevelShift(roundClamp255(spatial[j]))
		}
		coeffs := blk.Forward(spatial)

		c := sched.Position(i)
		idx := c.Row*blockSize + c.Col

		k := int(math.Round(coeffs[idx] / d))
		bits[i] = absInt(k)%2 != 0
	}
	return bits, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func roundClamp255(v float64) uint8 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
