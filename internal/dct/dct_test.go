package dct_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gjp-labs/forensicmark/internal/dct"
)

func TestForwardInverseRoundTrip(t *testing.T) {
	blk := dct.New(8)
	src := make([]float64, 64)
	for i := range src {
		src[i] = dct.LevelShift(uint8((i * 37) % 256))
	}

	coeffs := blk.Forward(src)
	got := make([]float64, 64)
	blk.Inverse(coeffs, got)

	for i := range src {
		assert.InDelta(t, src[i], got[i], 1e-6, "index %d", i)
	}
}

func TestDCDominatesConstantBlock(t *testing.T) {
	blk := dct.New(8)
	src := make([]float64, 64)
	for i := range src {
		src[i] = dct.LevelShift(200)
	}
	coeffs := blk.Forward(src)
	// 64 samples of 72 each, scaled by alpha(0)^2 = 1/8.
	assert.InDelta(t, 576.0, coeffs[0], 1e-9)
	for i := 1; i < 64; i++ {
		assert.InDelta(t, 0.0, coeffs[i], 1e-9)
	}
}

func TestLevelShiftInverse(t *testing.T) {
	for p := 0; p <= 255; p++ {
		got := dct.InverseLevelShift(dct.LevelShift(uint8(p)))
		assert.Equal(t, uint8(p), got)
	}
}

func TestExtractBlockOutOfBoundsReadsZero(t *testing.T) {
	plane := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	block := dct.ExtractBlock(plane, 3, 3, 4, 0, 0)
	assert.Equal(t, []float64{1, 2, 3, 0, 4, 5, 6, 0, 7, 8, 9, 0, 0, 0, 0, 0}, block)
}

func TestWriteBlockRoundTrip(t *testing.T) {
	plane := make([]float64, 16)
	block := []float64{1, 2, 3, 4}
	dct.WriteBlock(plane, 4, 2, 1, 1, block)
	out := dct.ExtractBlock(plane, 4, 4, 2, 1, 1)
	assert.Equal(t, block, out)
}

func TestBasisOrthonormal(t *testing.T) {
	// A random-ish block transformed forward then inverse should reproduce
	// itself exactly (up to float error); this also pins that the basis
	// table computed lazily on first use is stable across repeated calls.
	blk := dct.New(4)
	src := []float64{-12, 30, 7, -1, 4, 4, 4, 4, 0, 0, 0, 0, 99, -99, 1, -1}
	coeffs := blk.Forward(src)
	got := make([]float64, 16)
	blk.Inverse(coeffs, got)
	for i := range src {
		assert.True(t, math.Abs(src[i]-got[i]) < 1e-6)
	}
}
