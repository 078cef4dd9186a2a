package gammon

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRoller(t *testing.T) {
	r := FixedRoller(6, 1, 4)
	var rolls []int8
	for i := 0; i < 5; i++ {
		rolls = append(rolls, r.Roll())
	}
	assert.Equal(t, []int8{6, 1, 4, 6, 1}, rolls)

	assert.Equal(t, int8(1), FixedRoller().Roll())
}

func TestFixedRollerShared(t *testing.T) {
	// Given one roller shared by several games
	r := FixedRoller(1, 2, 3, 4, 5, 6)

	// When each game rolls at the same time
	counts := make([]map[int8]int, 6)
	var wg sync.WaitGroup
	for i := range counts {
		counts[i] = make(map[int8]int)
		wg.Add(1)
		go func(counts map[int8]int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				counts[r.Roll()]++
			}
		}(counts[i])
	}
	wg.Wait()

	// Then every value of the sequence is handed out exactly as often
	total := make(map[int8]int)
	for _, c := range counts {
		for v, n := range c {
			total[v] += n
		}
	}
	for v := int8(1); v <= 6; v++ {
		assert.Equal(t, 100, total[v], "value %d", v)
	}
}

func TestCryptoRoller(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := CryptoRoller.Roll()
		assert.True(t, v >= 1 && v <= 6, "rolled %d", v)
	}
}
