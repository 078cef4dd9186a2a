package gammon

import (
	"fmt"
	"time"
)

// Phase is the stage a game is in.
type Phase int8

const (
	PhaseOpening     Phase = iota // Both colors roll one die to decide who starts.
	PhaseOpeningDone              // The opening roll has a winner. Waiting for Start.
	PhasePlaying
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseOpening:
		return "opening"
	case PhaseOpeningDone:
		return "ready"
	case PhasePlaying:
		return "playing"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// WinType describes how a game was won.
type WinType int8

const (
	WinNone WinType = iota
	WinSingle
	WinGammon
	WinBackgammon
	WinResign
	WinDecline
)

func (w WinType) String() string {
	switch w {
	case WinSingle:
		return "single"
	case WinGammon:
		return "gammon"
	case WinBackgammon:
		return "backgammon"
	case WinResign:
		return "resign"
	case WinDecline:
		return "decline"
	default:
		return "none"
	}
}

// Snapshot is the state restored when a turn is undone.
type Snapshot struct {
	Board     Board
	Remaining []int8
}

// Game is the complete mutable state of one backgammon game. It is only changed
// through its transition methods (or Apply), each of which either succeeds entirely or
// leaves the game untouched.
type Game struct {
	Board     Board
	Phase     Phase
	Turn      Color
	Opening   [3]int8 // Opening roll per color.
	Roll1     int8
	Roll2     int8
	Remaining []int8 // Dice not yet used this turn.
	Moves     []Move // Moves played this turn.
	History   []Snapshot
	Cube      Cube
	Points    int    // Points required to win the match.
	Score     [3]int // Indexed by Color.
	Winner    Color
	WinType   WinType
	Started   time.Time
	Ended     time.Time
	Log       []string

	roller Roller
}

// NewGame returns a game in the opening roll phase with the standard starting layout.
func NewGame(points int) *Game {
	if points < 1 {
		points = 1
	}
	return &Game{
		Board:  NewBoard(),
		Phase:  PhaseOpening,
		Cube:   newCube(),
		Points: points,
	}
}

// SetRoller replaces the source of dice values.
func (g *Game) SetRoller(r Roller) {
	g.roller = r
}

func (g *Game) rollDie() int8 {
	if g.roller == nil {
		return CryptoRoller.Roll()
	}
	return g.roller.Roll()
}

// Copy returns a deep copy of the game.
func (g *Game) Copy() *Game {
	out := *g
	out.Remaining = append([]int8(nil), g.Remaining...)
	out.Moves = append([]Move(nil), g.Moves...)
	out.Log = append([]string(nil), g.Log...)
	if g.History != nil {
		out.History = make([]Snapshot, len(g.History))
		for i, s := range g.History {
			out.History[i] = Snapshot{Board: s.Board, Remaining: append([]int8(nil), s.Remaining...)}
		}
	}
	return &out
}

// Completed reports whether the game has ended.
func (g *Game) Completed() bool {
	return g.Phase == PhaseCompleted
}

func (g *Game) record(format string, args ...interface{}) {
	g.Log = append(g.Log, fmt.Sprintf(format, args...))
}

func (g *Game) checkTurn(c Color) error {
	if !c.Valid() {
		return ErrInvalidColor
	} else if g.Phase == PhaseCompleted {
		return ErrGameOver
	} else if g.Phase != PhasePlaying {
		return ErrWrongPhase
	} else if g.Turn != c {
		return ErrNotYourTurn
	}
	return nil
}

// RollOpening rolls the opening die for color c. Once both colors have rolled, the
// higher roll decides who moves first. A tie clears both rolls so they are rolled again.
func (g *Game) RollOpening(c Color) error {
	if !c.Valid() {
		return ErrInvalidColor
	} else if g.Phase == PhaseCompleted {
		return ErrGameOver
	} else if g.Phase != PhaseOpening {
		return ErrWrongPhase
	} else if g.Opening[c] != 0 {
		return ErrAlreadyRolled
	}

	g.Opening[c] = g.rollDie()

	o := c.Opponent()
	if g.Opening[o] == 0 {
		return nil
	}
	switch {
	case g.Opening[c] > g.Opening[o]:
		g.Turn = c
	case g.Opening[o] > g.Opening[c]:
		g.Turn = o
	default:
		g.record("o %d-%d tie", g.Opening[White], g.Opening[Black])
		g.Opening[White], g.Opening[Black] = 0, 0
		return nil
	}
	g.Phase = PhaseOpeningDone
	g.record("o %d-%d %d", g.Opening[White], g.Opening[Black], g.Turn)
	return nil
}

// Start begins play once the opening roll has been decided.
func (g *Game) Start(c Color) error {
	if !c.Valid() {
		return ErrInvalidColor
	} else if g.Phase == PhaseCompleted {
		return ErrGameOver
	} else if g.Phase != PhaseOpeningDone {
		return ErrWrongPhase
	}
	g.Phase = PhasePlaying
	g.Started = time.Now()
	return nil
}

// Roll rolls the dice for color c.
func (g *Game) Roll(c Color) error {
	if err := g.checkTurn(c); err != nil {
		return err
	} else if g.Cube.Offered {
		return ErrDoubleOffered
	} else if g.Roll1 != 0 {
		return ErrAlreadyRolled
	}

	g.Roll1, g.Roll2 = g.rollDie(), g.rollDie()
	if g.Roll1 == g.Roll2 {
		g.Remaining = []int8{g.Roll1, g.Roll1, g.Roll1, g.Roll1}
	} else {
		g.Remaining = []int8{g.Roll1, g.Roll2}
	}
	g.Moves = nil
	g.History = nil
	return nil
}

// Move plays one checker move for color c. When m.Die is zero the die is chosen from
// the remaining dice.
func (g *Game) Move(c Color, m Move) error {
	if err := g.checkTurn(c); err != nil {
		return err
	} else if g.Cube.Offered {
		return ErrDoubleOffered
	} else if g.Roll1 == 0 {
		return ErrNotRolled
	}

	if m.Die == 0 {
		m.Die = g.resolveDie(c, m)
	}
	if m.Die == 0 || !containsDie(g.Remaining, m.Die) {
		return &MoveError{Move: m, Err: ErrDieUnavailable}
	}

	next, err := ApplyMove(g.Board, c, m)
	if err != nil {
		return err
	}

	g.History = append(g.History, Snapshot{Board: g.Board, Remaining: append([]int8(nil), g.Remaining...)})
	g.Board = next
	g.Remaining = removeDie(g.Remaining, m.Die)
	g.Moves = append(g.Moves, m)

	if g.Board.Off[c] == NumCheckers {
		g.recordTurn()
		g.win(c, g.bearOffWinType(c))
	}
	return nil
}

// resolveDie returns the smallest remaining die that plays m legally, or the first
// die reaching m.To when none does so the caller receives a meaningful error.
func (g *Game) resolveDie(c Color, m Move) int8 {
	var values []int8
	for _, die := range g.Remaining {
		if !containsDie(values, die) {
			values = append(values, die)
		}
	}
	var fallback int8
	for die := int8(1); die <= 6; die++ {
		if !containsDie(values, die) || Destination(c, m.From, die) != m.To {
			continue
		}
		m.Die = die
		if ValidMove(g.Board, c, m) {
			return die
		} else if fallback == 0 {
			fallback = die
		}
	}
	return fallback
}

// Undo restores the board and dice to the state at the start of the turn. Undoing
// individual moves is not supported.
func (g *Game) Undo(c Color) error {
	if err := g.checkTurn(c); err != nil {
		return err
	} else if len(g.History) == 0 {
		return ErrNothingToUndo
	}
	first := g.History[0]
	g.Board = first.Board
	g.Remaining = first.Remaining
	g.History = nil
	g.Moves = nil
	return nil
}

// EndTurn passes the turn to the opponent. It is only allowed once every die has been
// used or no legal move remains.
func (g *Game) EndTurn(c Color) error {
	if err := g.checkTurn(c); err != nil {
		return err
	} else if g.Cube.Offered {
		return ErrDoubleOffered
	} else if g.Roll1 == 0 {
		return ErrNotRolled
	} else if len(g.Remaining) != 0 && len(g.LegalMoves()) != 0 {
		return ErrMovesRemain
	}

	g.recordTurn()
	g.Turn = c.Opponent()
	g.Roll1, g.Roll2 = 0, 0
	g.Remaining = nil
	g.Moves = nil
	g.History = nil
	return nil
}

// Resign forfeits the game. Either player may resign at any time before the game ends.
func (g *Game) Resign(c Color) error {
	if !c.Valid() {
		return ErrInvalidColor
	} else if g.Phase == PhaseCompleted {
		return ErrGameOver
	}
	g.record("%d r", c)
	g.win(c.Opponent(), WinResign)
	return nil
}

func (g *Game) recordTurn() {
	r1, r2 := g.Roll1, g.Roll2
	if r2 > r1 {
		r1, r2 = r2, r1
	}
	line := fmt.Sprintf("%d r %d-%d", g.Turn, r1, r2)
	if len(g.Moves) != 0 {
		line += " " + string(FormatMoves(g.Moves))
	}
	g.Log = append(g.Log, line)
}

// bearOffWinType scores a win by bearing off. The loser is gammoned when it has not
// borne off any checker, and backgammoned when it also still has a checker on the bar
// or in the winner's home board.
func (g *Game) bearOffWinType(winner Color) WinType {
	loser := winner.Opponent()
	if g.Board.Off[loser] != 0 {
		return WinSingle
	}
	if g.Board.Bar[loser] != 0 {
		return WinBackgammon
	}
	from, to := HomeRange(winner)
	for space := from; space <= to; space++ {
		if g.Board.Count(loser, space) != 0 {
			return WinBackgammon
		}
	}
	return WinGammon
}

func (g *Game) win(c Color, w WinType) {
	g.Phase = PhaseCompleted
	g.Winner = c
	g.WinType = w
	g.Ended = time.Now()
	g.Roll1, g.Roll2 = 0, 0
	g.Remaining = nil
	g.History = nil
	g.Score[c] += g.WinPoints()
}

// WinPoints returns the points awarded to the winner. Declined doubles and
// resignations award the full match target.
func (g *Game) WinPoints() int {
	switch g.WinType {
	case WinSingle:
		return g.Cube.Value
	case WinGammon:
		return g.Cube.Value * 2
	case WinBackgammon:
		return g.Cube.Value * 3
	case WinResign, WinDecline:
		return g.Points
	default:
		return 0
	}
}

// Result summarizes a completed game.
type Result struct {
	Winner  Color
	Loser   Color
	WinType WinType
	Points  int
	Cube    int
}

// Result returns the outcome of the game, or nil while it is in progress.
func (g *Game) Result() *Result {
	if g.Phase != PhaseCompleted || !g.Winner.Valid() {
		return nil
	}
	return &Result{
		Winner:  g.Winner,
		Loser:   g.Winner.Opponent(),
		WinType: g.WinType,
		Points:  g.WinPoints(),
		Cube:    g.Cube.Value,
	}
}
