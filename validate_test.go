package gammon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMove(t *testing.T) {
	tests := []struct {
		name  string
		board Board
		color Color
		move  Move
		err   error
	}{
		{"advance", NewBoard(), White, Move{13, 8, 5}, nil},
		{"black advance", NewBoard(), Black, Move{1, 7, 6}, nil},
		{"blocked", NewBoard(), White, Move{24, 19, 5}, ErrBlocked},
		{"wrong destination", NewBoard(), White, Move{13, 9, 5}, ErrWrongDestination},
		{"empty source", NewBoard(), White, Move{14, 9, 5}, ErrEmptySource},
		{"opponent source", NewBoard(), White, Move{1, 0, 1}, ErrEmptySource},
		{"invalid die", NewBoard(), White, Move{13, 6, 7}, ErrDieUnavailable},
		{"invalid space", NewBoard(), White, Move{30, 25, 5}, ErrInvalidSpace},
		{"bear off not home", NewBoard(), White, Move{6, SpaceOffWhite, 6}, ErrCannotBearOff},
		{"must enter", testBoard(map[int8]int8{SpaceBar: 1, 13: 2}, map[int8]int8{1: 2}), White, Move{13, 8, 5}, ErrMustEnterFromBar},
		{"enter", testBoard(map[int8]int8{SpaceBar: 1, 13: 2}, map[int8]int8{1: 2}), White, Move{SpaceBar, 22, 3}, nil},
		{"enter blocked", testBoard(map[int8]int8{SpaceBar: 1}, map[int8]int8{22: 2}), White, Move{SpaceBar, 22, 3}, ErrBlocked},
		{"bar empty", NewBoard(), White, Move{SpaceBar, 22, 3}, ErrEmptySource},
		{"bear off exact", testBoard(map[int8]int8{6: 2, 3: 3}, map[int8]int8{12: 15}), White, Move{6, SpaceOffWhite, 6}, nil},
		{"bear off overshoot", testBoard(map[int8]int8{6: 2, 3: 3}, map[int8]int8{12: 15}), White, Move{3, SpaceOffWhite, 5}, ErrOvershoot},
		{"bear off highest", testBoard(map[int8]int8{3: 3}, map[int8]int8{12: 15}), White, Move{3, SpaceOffWhite, 5}, nil},
		{"black bear off", testBoard(map[int8]int8{12: 15}, map[int8]int8{24: 1, 20: 2}), Black, Move{24, SpaceOffBlack, 1}, nil},
		{"black overshoot", testBoard(map[int8]int8{12: 15}, map[int8]int8{24: 1, 20: 2}), Black, Move{24, SpaceOffBlack, 6}, ErrOvershoot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.board
			after, err := ApplyMove(tt.board, tt.color, tt.move)
			assert.Equal(t, before, tt.board)
			if tt.err != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.err), "got %v, want %v", err, tt.err)
				assert.Equal(t, tt.board, after)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, after.Verify())
			assert.Equal(t, tt.board.Count(tt.color, tt.move.From)-1, after.Count(tt.color, tt.move.From))
			assert.Equal(t, tt.board.Count(tt.color, tt.move.To)+1, after.Count(tt.color, tt.move.To))
		})
	}
}

func TestApplyMoveHit(t *testing.T) {
	// Given: a white blot on 8 and a black checker three pips away.
	b := testBoard(map[int8]int8{8: 1, 6: 4}, map[int8]int8{5: 1, 1: 2})

	// When: black hits the blot.
	after, err := ApplyMove(b, Black, Move{5, 8, 3})

	// Then: the white checker is sent to the bar.
	require.NoError(t, err)
	assert.Equal(t, Point{Color: Black, Count: 1}, after.Points[8])
	assert.Equal(t, int8(1), after.Bar[White])
	assert.Equal(t, Point{}, after.Points[5])
	assert.NoError(t, after.Verify())
}

func TestApplyMoveError(t *testing.T) {
	_, err := ApplyMove(NewBoard(), White, Move{24, 19, 5})

	var moveErr *MoveError
	require.True(t, errors.As(err, &moveErr))
	assert.Equal(t, Move{24, 19, 5}, moveErr.Move)
	assert.Equal(t, "illegal move 24/19: destination is blocked", err.Error())

	_, err = ApplyMove(NewBoard(), NoColor, Move{24, 19, 5})
	assert.Equal(t, ErrInvalidColor, err)
}

func TestApplyMoveInconsistent(t *testing.T) {
	b := NewBoard()
	b.Off[White] = 1

	_, err := ApplyMove(b, White, Move{13, 8, 5})
	require.Error(t, err)

	var consistency *ConsistencyError
	require.True(t, errors.As(err, &consistency))
	assert.True(t, errors.Is(err, ErrInconsistent))
	assert.Equal(t, 16, consistency.Total)
}

func TestCanBearOff(t *testing.T) {
	assert.False(t, CanBearOff(White, NewBoard()))
	assert.True(t, CanBearOff(White, testBoard(map[int8]int8{1: 5, 6: 5}, map[int8]int8{12: 15})))
	assert.False(t, CanBearOff(White, testBoard(map[int8]int8{SpaceBar: 1, 6: 5}, map[int8]int8{12: 15})))
	assert.True(t, CanBearOff(Black, testBoard(map[int8]int8{12: 15}, map[int8]int8{19: 5, 24: 5})))
}

func TestIsValidMove(t *testing.T) {
	g := startGame(t, 3, 1)
	require.NoError(t, g.Roll(White))

	assert.True(t, IsValidMove(13, 10, 3, g))
	assert.True(t, IsValidMove(8, 7, 1, g))
	assert.False(t, IsValidMove(13, 12, 1, g))
	assert.False(t, IsValidMove(13, 8, 5, g))
	assert.False(t, IsValidMove(13, 10, 3, nil))

	assert.Len(t, g.Remaining, 2)
	assert.Equal(t, NewBoard(), g.Board)
}
