package hopper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gjp-labs/forensicmark/internal/hopper"
)

func TestNewIsPureFunctionOfSeed(t *testing.T) {
	a := hopper.New("GJP-MEDIA-2026-ABC123", "deadbeef", nil)
	b := hopper.New("GJP-MEDIA-2026-ABC123", "deadbeef", nil)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Position(i), b.Position(i))
	}
}

func TestDifferentSeedsProduceDifferentSchedules(t *testing.T) {
	a := hopper.New("GJP-MEDIA-2026-ABC123", "deadbeef", nil)
	b := hopper.New("GJP-MEDIA-2026-XYZ999", "deadbeef", nil)

	same := 0
	n := a.Len()
	for i := 0; i < n; i++ {
		if a.Position(i) == b.Position(i) {
			same++
		}
	}
	assert.Less(t, same, n)
}

func TestScheduleIsPermutationOfDefaultCoords(t *testing.T) {
	s := hopper.New("work-1", "hash-1", nil)
	seen := map[hopper.Coord]bool{}
	for i := 0; i < s.Len(); i++ {
		seen[s.Position(i)] = true
	}
	assert.Equal(t, len(hopper.DefaultCoords()), len(seen))
}

func TestPositionWrapsAroundCoordinateSet(t *testing.T) {
	s := hopper.New("work-2", "hash-2", nil)
	n := s.Len()
	for i := 0; i < n; i++ {
		assert.Equal(t, s.Position(i), s.Position(i+n))
	}
}

func TestCustomCoordinateSet(t *testing.T) {
	custom := []hopper.Coord{{1, 1}, {1, 2}, {2, 1}}
	s := hopper.New("work-3", "hash-3", custom)
	assert.Equal(t, 3, s.Len())
	for i := 0; i < 3; i++ {
		c := s.Position(i)
		assert.Contains(t, custom, c)
	}
}
