package dice

import (
	"math/rand/v2"
	"sync"
	"testing"

	"roleplay-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoll_ResultsInRangeAndTotal(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 500; i++ {
		r, err := e.Roll(20, 3, 2)
		require.NoError(t, err)
		require.Len(t, r.Results, 3)

		sum := 0
		for _, v := range r.Results {
			assert.GreaterOrEqual(t, v, 1)
			assert.LessOrEqual(t, v, 20)
			sum += v
		}
		assert.Equal(t, sum+2, r.Total)
	}
}

func TestRoll_ZeroDice(t *testing.T) {
	r, err := NewEngine().Roll(6, 0, -1)
	require.NoError(t, err)
	assert.Empty(t, r.Results)
	assert.Equal(t, -1, r.Total)
}

func TestRoll_OneSidedDie(t *testing.T) {
	r, err := NewEngine().Roll(1, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 1}, r.Results)
	assert.Equal(t, 4, r.Total)
}

func TestRoll_InvalidInput(t *testing.T) {
	e := NewEngine()

	_, err := e.Roll(0, 1, 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = e.Roll(6, -1, 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

}

func TestRoll_NoUpperBoundOnCount(t *testing.T) {
	r, err := NewEngine().Roll(20, MaxCount+1, 0)
	require.NoError(t, err)
	assert.Len(t, r.Results, MaxCount+1)
}

func TestRoll_SeededEngineIsSafeForConcurrentUse(t *testing.T) {
	e := NewEngineWithSource(rand.NewPCG(7, 7))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r, err := e.Roll(6, 3, 0)
				if assert.NoError(t, err) {
					for _, v := range r.Results {
						assert.True(t, v >= 1 && v <= 6)
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestRoll_IndependentEnginesDoNotCorrelate(t *testing.T) {
	a, b := NewEngine(), NewEngine()
	ra, err := a.Roll(100, 50, 0)
	require.NoError(t, err)
	rb, err := b.Roll(100, 50, 0)
	require.NoError(t, err)
	assert.NotEqual(t, ra.Results, rb.Results)
}

func TestRoll_SeededSourceIsReproducible(t *testing.T) {
	a := NewEngineWithSource(rand.NewPCG(1, 2))
	b := NewEngineWithSource(rand.NewPCG(1, 2))

	ra, err := a.Roll(20, 5, 0)
	require.NoError(t, err)
	rb, err := b.Roll(20, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, ra.Results, rb.Results)
}

func TestNotationAndDescribe(t *testing.T) {
	r := models.DiceRoll{Sides: 20, Count: 3, Modifier: 2, Results: []int{12, 9, 12}, Total: 35}
	assert.Equal(t, "3d20+2", Notation(r))
	assert.Equal(t, "3d20+2 = 35 (12, 9, 12)", Describe(r))

	r.Modifier = -1
	assert.Equal(t, "3d20-1", Notation(r))
	r.Modifier = 0
	assert.Equal(t, "3d20", Notation(r))
}
