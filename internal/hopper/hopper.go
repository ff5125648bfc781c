// Package hopper derives the deterministic mid-frequency DCT coordinate
// schedule the QIM embed/extract pipeline walks one block at a time. The
// shuffle is seeded from a SHA-256 digest rather than math/rand so the same
// (workId, payloadHash) pair always reproduces the same coordinate order on
// any machine, matching the permutation-from-a-seed shape the teacher used
// for its own coefficient shuffle (mark/ecc.go's shuffledgolay), but driven
// by seed bytes instead of math/rand so the schedule is defined purely by
// its inputs and never by the Go runtime's PRNG implementation.
package hopper

import "crypto/sha256"

// Coord is a (row, col) position inside an 8x8 (or NxN) DCT block.
type Coord struct {
	Row, Col int
}

// defaultCoords is the fixed mid-frequency coordinate set spec §4.2 fixes:
// DC and low frequencies are skipped (they carry visible luminance), high
// frequencies are skipped (JPEG quantizes them away first).
var defaultCoords = []Coord{
	{2, 2}, {2, 3}, {3, 2}, {3, 3}, {2, 4}, {4, 2}, {3, 4},
	{4, 3}, {4, 4}, {2, 5}, {5, 2}, {3, 5}, {5, 3},
}

// Schedule is the ordered, shuffled coordinate list a single embed or
// extract run walks. It is a pure function of its seed: building one never
// touches any global or process state.
type Schedule struct {
	coords []Coord
}

// New derives a Schedule by SHA-256-hashing workID+":"+payloadHash and
// Fisher–Yates shuffling a copy of coords (defaultCoords when coords is
// nil) using the digest bytes as the index source: byte i of the digest,
// taken mod (i+1) and wrapping around the digest when the list has more
// than 32 entries, picks the swap partner for position i. The schedule is
// a pure function of (workId, payloadHash) and the coordinate set, and
// nothing else; block size is not an input.
func New(workID, payloadHash string, coords []Coord) *Schedule {
	if coords == nil {
		coords = defaultCoords
	}
	seed := sha256.Sum256([]byte(workID + ":" + payloadHash))

	shuffled := make([]Coord, len(coords))
	copy(shuffled, coords)
	for i := len(shuffled) - 1; i > 0; i-- {
		seedByte := seed[i%len(seed)]
		j := int(seedByte) % (i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return &Schedule{coords: shuffled}
}

// Position returns the coordinate assigned to blockIndex. The schedule
// wraps once blockIndex exceeds the coordinate count: duplicate reuse
// across blocks is intentional, the hopping pattern cycles across blocks
// rather than diversifying within one.
func (s *Schedule) Position(blockIndex int) Coord {
	return s.coords[blockIndex%len(s.coords)]
}

// Len reports the number of distinct coordinates in the schedule.
func (s *Schedule) Len() int { return len(s.coords) }

// DefaultCoords returns a copy of the fixed mid-frequency coordinate set
// used when no custom set is supplied to New.
func DefaultCoords() []Coord {
	out := make([]Coord, len(defaultCoords))
	copy(out, defaultCoords)
	return out
}
