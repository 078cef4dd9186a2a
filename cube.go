package gammon

// MaxCubeValue is the highest value the doubling cube may reach.
const MaxCubeValue = 64

// Cube is the doubling cube. Owner is NoColor while the cube is centered. While a
// double is offered, Value already holds the doubled stake and Owner the offering
// color until the opponent responds.
type Cube struct {
	Value   int
	Owner   Color
	Offered bool
}

func newCube() Cube {
	return Cube{Value: 1}
}

// MayOffer reports whether color c could offer a double given only the cube state.
func (c Cube) MayOffer(color Color) bool {
	return !c.Offered && c.Value < MaxCubeValue && (c.Owner == NoColor || c.Owner == color)
}

// OfferDouble offers a double to the opponent. It is only allowed on the offering
// player's turn before the dice are rolled.
func (g *Game) OfferDouble(c Color) error {
	if err := g.checkTurn(c); err != nil {
		return err
	} else if g.Cube.Offered {
		return ErrDoubleOffered
	} else if g.Roll1 != 0 {
		return ErrCannotDouble
	} else if g.Cube.Value >= MaxCubeValue {
		return ErrCubeMax
	} else if g.Cube.Owner != NoColor && g.Cube.Owner != c {
		return ErrCannotDouble
	}

	g.Cube.Value *= 2
	g.Cube.Owner = c
	g.Cube.Offered = true
	g.record("%d d %d", c, g.Cube.Value)
	return nil
}

// AcceptDouble accepts an outstanding double. Only the player who is not on turn may
// respond to a double.
func (g *Game) AcceptDouble(c Color) error {
	if err := g.checkResponse(c); err != nil {
		return err
	}
	g.Cube.Offered = false
	g.Cube.Owner = c
	g.record("%d t %d", c, g.Cube.Value)
	return nil
}

// DeclineDouble declines an outstanding double, which forfeits the match to the
// offering player.
func (g *Game) DeclineDouble(c Color) error {
	if err := g.checkResponse(c); err != nil {
		return err
	}
	g.Cube.Offered = false
	g.record("%d p", c)
	g.win(c.Opponent(), WinDecline)
	return nil
}

func (g *Game) checkResponse(c Color) error {
	if !c.Valid() {
		return ErrInvalidColor
	} else if g.Phase == PhaseCompleted {
		return ErrGameOver
	} else if g.Phase != PhasePlaying {
		return ErrWrongPhase
	} else if !g.Cube.Offered {
		return ErrNoDoubleOffered
	} else if g.Turn == c {
		return ErrNotYourTurn
	}
	return nil
}
