package kmeans

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverageStoreAddAndAverage(t *testing.T) {
	s := &AverageStore{}
	s.Add(1.0)
	s.Add(0.5)
	s.Add(0.75)

	assert.Equal(t, 3, s.Count())
	assert.InDelta(t, 2.25, s.Sum(), 1e-9)
	assert.InDelta(t, 0.75, s.Average(), 1e-9)
}

func TestAverageStoreInitialize(t *testing.T) {
	s := &AverageStore{}
	s.Initialize(10, 4)

	assert.Equal(t, 4, s.Count())
	assert.InDelta(t, 10.0, s.Sum(), 1e-9)
	assert.InDelta(t, 2.5, s.Average(), 1e-9)

	s.Add(10)
	assert.Equal(t, 5, s.Count())
	assert.InDelta(t, 4.0, s.Average(), 1e-9)
}

func TestAverageStoreConcurrentAdd(t *testing.T) {
	s := &AverageStore{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, s.Count())
	assert.InDelta(t, 100.0, s.Sum(), 1e-9)
}
