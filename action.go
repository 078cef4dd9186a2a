package gammon

import "fmt"

// ActionType identifies a player action.
type ActionType string

const (
	ActionOpening ActionType = "opening"
	ActionStart   ActionType = "start"
	ActionRoll    ActionType = "roll"
	ActionMove    ActionType = "move"
	ActionUndo    ActionType = "undo"
	ActionEndTurn ActionType = "end"
	ActionDouble  ActionType = "double"
	ActionAccept  ActionType = "accept"
	ActionDecline ActionType = "decline"
	ActionResign  ActionType = "resign"
)

// Action is a single request to change the game. It is the unit submitted by clients
// and applied by the server.
type Action struct {
	Type  ActionType `json:"type"`
	Color Color      `json:"color"`
	Moves []Move     `json:"moves,omitempty"`
}

func (a Action) String() string {
	if len(a.Moves) == 0 {
		return fmt.Sprintf("%s %s", a.Color, a.Type)
	}
	return fmt.Sprintf("%s %s %s", a.Color, a.Type, FormatMoves(a.Moves))
}

// Apply performs a on g. Actions carrying several moves are applied to a copy first
// and only committed when every move succeeds.
func (g *Game) Apply(a Action) error {
	switch a.Type {
	case ActionOpening:
		return g.RollOpening(a.Color)
	case ActionStart:
		return g.Start(a.Color)
	case ActionRoll:
		return g.Roll(a.Color)
	case ActionMove:
		if len(a.Moves) == 0 {
			return &MoveError{Err: ErrEmptySource}
		}
		scratch := g.Copy()
		for _, m := range a.Moves {
			if err := scratch.Move(a.Color, m); err != nil {
				return err
			}
		}
		*g = *scratch
		return nil
	case ActionUndo:
		return g.Undo(a.Color)
	case ActionEndTurn:
		return g.EndTurn(a.Color)
	case ActionDouble:
		return g.OfferDouble(a.Color)
	case ActionAccept:
		return g.AcceptDouble(a.Color)
	case ActionDecline:
		return g.DeclineDouble(a.Color)
	case ActionResign:
		return g.Resign(a.Color)
	default:
		return ErrUnknownAction
	}
}
