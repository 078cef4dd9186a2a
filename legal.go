package gammon

// LegalMoves returns every single-checker move color c may play on b using one of
// dice. While c has checkers on the bar only bar entries are considered.
func LegalMoves(b Board, c Color, dice []int8) []Move {
	if !c.Valid() || len(dice) == 0 {
		return nil
	}

	var values []int8
	for _, die := range dice {
		if !containsDie(values, die) {
			values = append(values, die)
		}
	}

	var moves []Move
	try := func(from int8, die int8) {
		m := Move{From: from, To: Destination(c, from, die), Die: die}
		if ValidMove(b, c, m) {
			moves = append(moves, m)
		}
	}

	if b.Bar[c] > 0 {
		for _, die := range values {
			try(SpaceBar, die)
		}
		SortMoves(moves)
		return moves
	}

	for space := int8(1); space <= 24; space++ {
		if b.Count(c, space) == 0 {
			continue
		}
		for _, die := range values {
			try(space, die)
		}
	}
	SortMoves(moves)
	return moves
}

// LegalMoves returns the moves available to the player whose turn it is.
func (g *Game) LegalMoves() []Move {
	if g.Phase != PhasePlaying || g.Cube.Offered || len(g.Remaining) == 0 {
		return nil
	}
	return LegalMoves(g.Board, g.Turn, g.Remaining)
}

func containsDie(dice []int8, die int8) bool {
	for _, d := range dice {
		if d == die {
			return true
		}
	}
	return false
}

func removeDie(dice []int8, die int8) []int8 {
	for i, d := range dice {
		if d == die {
			out := make([]int8, 0, len(dice)-1)
			out = append(out, dice[:i]...)
			return append(out, dice[i+1:]...)
		}
	}
	return dice
}
