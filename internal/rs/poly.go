package rs

// Polynomials are represented as byte slices in order of decreasing degree
// (index 0 is the highest-degree coefficient), the convention used
// throughout classic "RS codes for coders" expositions.

func polyScale(p []byte, x byte) []byte {
	out := make([]byte, len(p))
	for i, c := range p {
		out[i] = gfMul(c, x)
	}
	return out
}

func polyAdd(p, q []byte) []byte {
	n := max(len(p), len(q))
	out := make([]byte, n)
	for i, c := range p {
		out[i+n-len(p)] = c
	}
	for i, c := range q {
		out[i+n-len(q)] ^= c
	}
	return out
}

func polyMul(p, q []byte) []byte {
	out := make([]byte, len(p)+len(q)-1)
	for j, qc := range q {
		if qc == 0 {
			continue
		}
		for i, pc := range p {
			out[i+j] ^= gfMul(pc, qc)
		}
	}
	return out
}

// polyEval evaluates p(x) via Horner's method.
func polyEval(p []byte, x byte) byte {
	y := p[0]
	for i := 1; i < len(p); i++ {
		y = gfMul(y, x) ^ p[i]
	}
	return y
}

// polyDivMod performs polynomial long division over GF(2^8), returning the
// remainder only (quotient is discarded; systematic RS encoding only needs
// the remainder of msg(x)*x^nsym divided by the generator).
func polyDivMod(dividend, divisor []byte) []byte {
	out := make([]byte, len(dividend))
	copy(out, dividend)
	for i := 0; i <= len(dividend)-len(divisor); i++ {
		coef := out[i]
		if coef == 0 {
			continue
		}
		for j := 1; j < len(divisor); j++ {
			if divisor[j] == 0 {
				continue
			}
			out[i+j] ^= gfMul(divisor[j], coef)
		}
	}
	return out[len(dividend)-len(divisor)+1:]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
