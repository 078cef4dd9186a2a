package gammon

import (
	"bytes"

	"codeberg.org/tslocum/tabula"
)

// Spaces of a tabula board as seen by the player to move.
const (
	tabulaHome = 0
	tabulaBar  = 25
)

// tabulaBoard returns the position of g from the perspective of the player on turn,
// who is always player 1: their checkers are positive and travel toward space 0.
func tabulaBoard(g *Game) tabula.Board {
	c, o := g.Turn, g.Turn.Opponent()

	var s [28]int8
	for pip := int8(1); pip <= 24; pip++ {
		p := g.Board.Points[SpaceAt(c, pip)]
		switch p.Color {
		case c:
			s[pip] = p.Count
		case o:
			s[pip] = -p.Count
		}
	}
	s[tabulaHome], s[tabulaBar], s[26], s[27] = g.Board.Off[c], g.Board.Bar[c], -g.Board.Bar[o], -g.Board.Off[o]

	// Dice already played this turn are cleared from their slot.
	rolls := [4]int8{g.Roll1, g.Roll2}
	if g.Roll1 == g.Roll2 {
		rolls[2], rolls[3] = g.Roll1, g.Roll2
	}
	remaining := append([]int8(nil), g.Remaining...)
	for i, die := range rolls {
		if containsDie(remaining, die) {
			remaining = removeDie(remaining, die)
		} else {
			rolls[i] = 0
		}
	}

	const entered, variant = 1, 0
	return tabula.Board{s[0], s[1], s[2], s[3], s[4], s[5], s[6], s[7], s[8], s[9], s[10], s[11], s[12], s[13], s[14], s[15], s[16], s[17], s[18], s[19], s[20], s[21], s[22], s[23], s[24], s[25], s[26], s[27], rolls[0], rolls[1], rolls[2], rolls[3], entered, entered, variant}
}

func fromTabulaSpace(c Color, space int8) int8 {
	switch space {
	case tabulaHome:
		return OffSpace(c)
	case tabulaBar:
		return SpaceBar
	}
	return SpaceAt(c, space)
}

// Hints returns the complete plays available to the player on turn. Each play is
// replayed against the game and cut short at the first move the game refuses. It
// returns nil unless dice remain to be played.
func (g *Game) Hints() [][]Move {
	if g.Phase != PhasePlaying || g.Cube.Offered || len(g.Remaining) == 0 {
		return nil
	}
	c := g.Turn

	available, _ := tabulaBoard(g).Available(1)
	var hints [][]Move
	var seen [][]byte
	for i := range available {
		scratch := g.Copy()
		var moves []Move
		for j := 0; j < 4; j++ {
			m := available[i][j]
			if m[0] == 0 && m[1] == 0 {
				break
			}
			move := Move{From: fromTabulaSpace(c, m[0]), To: fromTabulaSpace(c, m[1])}
			if scratch.Move(c, move) != nil {
				break
			}
			moves = append(moves, scratch.Moves[len(scratch.Moves)-1])
		}
		if len(moves) == 0 {
			continue
		}

		formatted := FormatMoves(moves)
		var duplicate bool
		for _, s := range seen {
			if bytes.Equal(s, formatted) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			seen = append(seen, formatted)
			hints = append(hints, moves)
		}
	}
	return hints
}
