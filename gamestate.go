package gammon

// GameState is a game as seen by one of its participants.
type GameState struct {
	*Game
	Color     Color     // Color of the viewing player. NoColor for spectators.
	Players   [3]Player // Indexed by Color.
	Available []Move    // Legal moves for the viewing player.
	Position  string    `json:",omitempty"`
}

// NewGameState returns the state of g as seen by viewer.
func NewGameState(g *Game, viewer Color, players [3]Player) *GameState {
	gs := &GameState{
		Game:    g,
		Color:   viewer,
		Players: players,
	}
	if viewer.Valid() && g.Turn == viewer {
		gs.Available = g.LegalMoves()
	}
	if g.Phase == PhasePlaying {
		gs.Position = g.Board.PositionID(g.Turn)
	}
	return gs
}

func (g *GameState) LocalPlayer() Player {
	return g.Players[g.Color]
}

func (g *GameState) OpponentPlayer() Player {
	return g.Players[g.Color.Opponent()]
}

// MayRoll reports whether the viewing player may roll the dice.
func (g *GameState) MayRoll() bool {
	return g.Phase == PhasePlaying && g.Turn == g.Color && g.Roll1 == 0 && !g.Cube.Offered
}

// MayDouble reports whether the viewing player may offer a double.
func (g *GameState) MayDouble() bool {
	return g.Phase == PhasePlaying && g.Turn == g.Color && g.Roll1 == 0 && g.Cube.MayOffer(g.Color)
}

// MayRespond reports whether the viewing player must accept or decline a double.
func (g *GameState) MayRespond() bool {
	return g.Phase == PhasePlaying && g.Cube.Offered && g.Color.Valid() && g.Turn != g.Color
}

// MayEndTurn reports whether the viewing player may pass the turn.
func (g *GameState) MayEndTurn() bool {
	return g.Phase == PhasePlaying && g.Turn == g.Color && g.Roll1 != 0 && !g.Cube.Offered &&
		(len(g.Remaining) == 0 || len(g.Available) == 0)
}
