package gammon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalMovesOpening(t *testing.T) {
	moves := LegalMoves(NewBoard(), White, []int8{3, 1})
	assert.Equal(t, []Move{
		{24, 23, 1},
		{24, 21, 3},
		{13, 10, 3},
		{8, 7, 1},
		{8, 5, 3},
		{6, 5, 1},
		{6, 3, 3},
	}, moves)
}

func TestLegalMovesBar(t *testing.T) {
	b := testBoard(map[int8]int8{SpaceBar: 1, 13: 5}, map[int8]int8{19: 2, 1: 2})

	moves := LegalMoves(b, White, []int8{6, 5})
	assert.Equal(t, []Move{{SpaceBar, 20, 5}}, moves)

	b.Points[20] = Point{Color: Black, Count: 2}
	b.Off[Black] -= 2
	require.NoError(t, b.Verify())
	assert.Empty(t, LegalMoves(b, White, []int8{6, 5}))
}

func TestLegalMovesDoubles(t *testing.T) {
	moves := LegalMoves(NewBoard(), Black, []int8{4, 4, 4, 4})
	seen := make(map[Move]bool)
	for _, m := range moves {
		assert.False(t, seen[m], "duplicate move %s", m)
		seen[m] = true
		assert.Equal(t, int8(4), m.Die)
	}
	assert.NotEmpty(t, moves)
}

func TestLegalMovesAreValid(t *testing.T) {
	for _, c := range []Color{White, Black} {
		for d1 := int8(1); d1 <= 6; d1++ {
			for d2 := d1; d2 <= 6; d2++ {
				b := NewBoard()
				for _, m := range LegalMoves(b, c, []int8{d1, d2}) {
					after, err := ApplyMove(b, c, m)
					require.NoError(t, err, "%s %s with %d-%d", c, m, d1, d2)
					assert.NoError(t, after.Verify())
					assert.True(t, m.Die == d1 || m.Die == d2)
				}
			}
		}
	}
}

func TestLegalMovesNone(t *testing.T) {
	assert.Nil(t, LegalMoves(NewBoard(), NoColor, []int8{1, 2}))
	assert.Nil(t, LegalMoves(NewBoard(), White, nil))

	g := NewGame(1)
	assert.Nil(t, g.LegalMoves())
}
