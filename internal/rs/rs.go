// Package rs implements byte-level Reed–Solomon over GF(2^8) with the
// primitive polynomial and generator spec §4.3 fixes: g(x) = prod_{i=0}^{ecc-1}
// (x - alpha^i), alpha=2. Decoding runs syndrome computation,
// Berlekamp–Massey, a Chien-search for error positions and a linear solve
// (the textbook key-equation, solved directly rather than via Forney's
// closed form — same algebra, fewer places for an index-convention bug to
// hide since neither side of this codec is ever read by anything outside
// this package).
package rs

import "errors"

// ErrTooManyErrors indicates a buffer could not be corrected within its
// declared error-correction budget. Decode never returns this to the
// caller — it reports failure via DecodeResult.OK instead, matching spec
// §4.3's "decode fails and reports errorsFound, errorsCorrected = 0", but
// it is retained for callers (e.g. a future strict mode) that want an error
// value.
var ErrTooManyErrors = errors.New("rs: too many errors to correct")

// MaxCodewordLen is the largest message+parity length GF(2^8) positions
// can address.
const MaxCodewordLen = 255

func generatorPoly(nsym int) []byte {
	g := []byte{1}
	for i := 0; i < nsym; i++ {
		g = polyMul(g, []byte{1, alphaPow(i)})
	}
	return g
}

// Encode appends nsym Reed–Solomon parity bytes to msg, returning the
// systematic codeword message||parity. len(msg)+nsym must not exceed
// MaxCodewordLen.
func Encode(msg []byte, nsym int) []byte {
	if len(msg)+nsym > MaxCodewordLen {
		panic("rs: codeword exceeds GF(2^8) address space")
	}
	gen := generatorPoly(nsym)
	padded := make([]byte, len(msg)+nsym)
	copy(padded, msg)
	remainder := polyDivMod(padded, gen)
	out := make([]byte, len(msg)+nsym)
	copy(out, msg)
	copy(out[len(msg):], remainder)
	return out
}

func syndromes(codeword []byte, nsym int) []byte {
	s := make([]byte, nsym)
	for i := range s {
		s[i] = polyEval(codeword, alphaPow(i))
	}
	return s
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// findErrorLocator runs Berlekamp–Massey over the syndrome sequence,
// returning the error-locator polynomial Λ(x) (decreasing-degree, constant
// term last) or ok=false if the implied error count exceeds what nsym
// parity bytes can correct.
func findErrorLocator(synd []byte, nsym int) (errLoc []byte, ok bool) {
	errLoc = []byte{1}
	oldLoc := []byte{1}
	for i := 0; i < nsym; i++ {
		delta := synd[i]
		for j := 1; j < len(errLoc); j++ {
			delta ^= gfMul(errLoc[len(errLoc)-1-j], synd[i-j])
		}
		oldLoc = append(oldLoc, 0)
		if delta != 0 {
			if len(oldLoc) > len(errLoc) {
				newLoc := polyScale(oldLoc, delta)
				oldLoc = polyScale(errLoc, gfInverse(delta))
				errLoc = newLoc
			}
			errLoc = polyAdd(errLoc, polyScale(oldLoc, delta))
		}
	}
	for len(errLoc) > 1 && errLoc[0] == 0 {
		errLoc = errLoc[1:]
	}
	errs := len(errLoc) - 1
	if errs*2 > nsym {
		return nil, false
	}
	return errLoc, true
}

// chienSearch finds the degree positions (0..n-1, counted from the
// low-order end of the codeword polynomial) at which Λ has a root, i.e. the
// declared error locations.
func chienSearch(errLoc []byte, n int) []int {
	var positions []int
	for p := 0; p < n; p++ {
		x := gfInverse(alphaPow(p))
		if polyEval(errLoc, x) == 0 {
			positions = append(positions, p)
		}
	}
	return positions
}

// solveMagnitudes solves the Vandermonde system sum_l e_l * X_l^i = S_i,
// i=0..len(positions)-1, for the error magnitudes e_l via Gaussian
// elimination over GF(2^8). X_l = alpha^(positions[l]).
func solveMagnitudes(synd []byte, positions []int) ([]byte, bool) {
	k := len(positions)
	x := make([]byte, k)
	for l, p := range positions {
		x[l] = alphaPow(p)
	}

	// augmented matrix [k x (k+1)]
	m := make([][]byte, k)
	for i := range m {
		row := make([]byte, k+1)
		for l := range positions {
			row[l] = gfPow(x[l], i)
		}
		row[k] = synd[i]
		m[i] = row
	}

	for col := 0; col < k; col++ {
		pivot := -1
		for row := col; row < k; row++ {
			if m[row][col] != 0 {
				pivot = row
				break
			}
		}
		if pivot == -1 {
			return nil, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		inv := gfInverse(m[col][col])
		for c := col; c <= k; c++ {
			m[col][c] = gfMul(m[col][c], inv)
		}
		for row := 0; row < k; row++ {
			if row == col {
				continue
			}
			factor := m[row][col]
			if factor == 0 {
				continue
			}
			for c := col; c <= k; c++ {
				m[row][c] ^= gfMul(factor, m[col][c])
			}
		}
	}

	e := make([]byte, k)
	for i := range e {
		e[i] = m[i][k]
	}
	return e, true
}

// DecodeResult is the outcome of a single RS decode attempt.
type DecodeResult struct {
	Data            []byte // corrected message (parity stripped), valid only if OK
	ErrorsFound     int
	ErrorsCorrected int
	OK              bool
}

// Decode attempts to correct up to floor(nsym/2) byte errors in codeword
// (message||parity, len(codeword) = len(message)+nsym) and returns the
// corrected message. Per spec §4.3, a second syndrome pass verifies the
// correction; if residual syndromes are non-zero the decode is reported as
// failed with ErrorsFound=ErrorsCorrected=0.
func Decode(codeword []byte, nsym int) DecodeResult {
	msgLen := len(codeword) - nsym
	synd := syndromes(codeword, nsym)
	if allZero(synd) {
		return DecodeResult{Data: append([]byte{}, codeword[:msgLen]...), OK: true}
	}

	errLoc, ok := findErrorLocator(synd, nsym)
	if !ok {
		return DecodeResult{OK: false}
	}
	errs := len(errLoc) - 1
	positions := chienSearch(errLoc, len(codeword))
	if len(positions) != errs {
		return DecodeResult{OK: false}
	}

	mags, ok := solveMagnitudes(synd, positions)
	if !ok {
		return DecodeResult{OK: false}
	}

	corrected := append([]byte{}, codeword...)
	for l, p := range positions {
		idx := len(corrected) - 1 - p
		corrected[idx] ^= mags[l]
	}

	verify := syndromes(corrected, nsym)
	if !allZero(verify) {
		return DecodeResult{OK: false}
	}
	return DecodeResult{
		Data:            corrected[:msgLen],
		ErrorsFound:     errs,
		ErrorsCorrected: errs,
		OK:              true,
	}
}

// Capacity returns floor(nsym/2), the maximum number of byte errors a
// codeword encoded with nsym parity bytes can correct.
func Capacity(nsym int) int { return nsym / 2 }
