package gammon

// CanBearOff reports whether color c may bear off: no checkers on the bar and none
// outside of its home board.
func CanBearOff(c Color, b Board) bool {
	if b.Bar[c] != 0 {
		return false
	}
	for space := int8(1); space <= 24; space++ {
		p := b.Points[space]
		if p.Color == c && p.Count > 0 && !InHome(c, space) {
			return false
		}
	}
	return true
}

// ApplyMove moves one checker of color c on a copy of b and returns the copy. The
// original board is never modified, so a failed move leaves no trace. Illegal moves
// return a *MoveError and a board that fails the checker count check after the move
// returns a *ConsistencyError.
func ApplyMove(b Board, c Color, m Move) (Board, error) {
	if !c.Valid() {
		return b, ErrInvalidColor
	}
	fail := func(err error) (Board, error) {
		return b, &MoveError{Move: m, Err: err}
	}

	if m.Die < 1 || m.Die > 6 {
		return fail(ErrDieUnavailable)
	} else if !ValidSpace(m.From) || !ValidSpace(m.To) {
		return fail(ErrInvalidSpace)
	}

	if m.From == SpaceBar {
		if b.Bar[c] == 0 {
			return fail(ErrEmptySource)
		}
	} else {
		if m.From < 1 || m.From > 24 {
			return fail(ErrInvalidSpace)
		} else if b.Bar[c] > 0 {
			return fail(ErrMustEnterFromBar)
		} else if b.Count(c, m.From) == 0 {
			return fail(ErrEmptySource)
		}
	}

	to := Destination(c, m.From, m.Die)
	if m.To != to {
		return fail(ErrWrongDestination)
	}

	next := b
	if to == OffSpace(c) {
		if !CanBearOff(c, b) {
			return fail(ErrCannotBearOff)
		}
		pip := PipDistance(c, m.From)
		if m.Die > pip {
			// Overshooting is only allowed from the highest occupied point.
			for higher := pip + 1; higher <= 6; higher++ {
				if b.Count(c, SpaceAt(c, higher)) > 0 {
					return fail(ErrOvershoot)
				}
			}
		}
		next.Off[c]++
	} else {
		dest := next.Points[to]
		if dest.Count > 0 && dest.Color != c {
			if dest.Count > 1 {
				return fail(ErrBlocked)
			}
			// Hit.
			next.Bar[c.Opponent()]++
			dest.Count = 0
		}
		next.Points[to] = Point{Color: c, Count: dest.Count + 1}
	}

	if m.From == SpaceBar {
		next.Bar[c]--
	} else {
		p := next.Points[m.From]
		p.Count--
		if p.Count == 0 {
			p.Color = NoColor
		}
		next.Points[m.From] = p
	}

	if err := next.Verify(); err != nil {
		return b, err
	}
	return next, nil
}

// ValidMove reports whether color c may play m on b, ignoring whose turn it is and
// which dice remain.
func ValidMove(b Board, c Color, m Move) bool {
	_, err := ApplyMove(b, c, m)
	return err == nil
}

// IsValidMove reports whether the player to move in g may move a checker from source
// to destination using die.
func IsValidMove(from int8, to int8, die int8, g *Game) bool {
	if g == nil {
		return false
	}
	scratch := g.Copy()
	return scratch.Move(scratch.Turn, Move{From: from, To: to, Die: die}) == nil
}
