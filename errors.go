package gammon

import (
	"errors"
	"fmt"
)

// Move validation errors.
var (
	ErrInvalidSpace     = errors.New("invalid space")
	ErrEmptySource      = errors.New("no checker to move")
	ErrMustEnterFromBar = errors.New("checkers on the bar must enter first")
	ErrWrongDestination = errors.New("destination does not match die")
	ErrBlocked          = errors.New("destination is blocked")
	ErrCannotBearOff    = errors.New("all checkers must be in the home board to bear off")
	ErrOvershoot        = errors.New("a checker on a higher point must be moved first")
	ErrInconsistent     = errors.New("checker count mismatch")
)

// Turn and doubling errors.
var (
	ErrWrongPhase      = errors.New("action not allowed at this stage of the game")
	ErrNotYourTurn     = errors.New("it is not your turn")
	ErrAlreadyRolled   = errors.New("dice have already been rolled")
	ErrNotRolled       = errors.New("you must roll first")
	ErrDieUnavailable  = errors.New("die value is not available")
	ErrMovesRemain     = errors.New("legal moves are still available")
	ErrNothingToUndo   = errors.New("no moves to undo")
	ErrDoubleOffered   = errors.New("a double has been offered")
	ErrNoDoubleOffered = errors.New("no double has been offered")
	ErrCannotDouble    = errors.New("you may not double at this time")
	ErrCubeMax         = errors.New("doubling cube is at its maximum value")
	ErrGameOver        = errors.New("game is already completed")
	ErrInvalidColor    = errors.New("invalid color")
	ErrUnknownAction   = errors.New("unknown action")
)

// MoveError describes why a single checker move was rejected.
type MoveError struct {
	Move Move
	Err  error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("illegal move %s: %s", e.Move, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// ConsistencyError is returned when a board no longer holds exactly NumCheckers
// checkers per color. It indicates a defect rather than an illegal move.
type ConsistencyError struct {
	Color  Color
	Total  int
	Detail string
}

func (e *ConsistencyError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", ErrInconsistent, e.Detail)
	}
	return fmt.Sprintf("%s: %s has %d checkers", ErrInconsistent, e.Color, e.Total)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrInconsistent
}
