package gammon

import "fmt"

// Spaces are stored in canonical coordinates, independent of which color is viewing
// the board. White moves from 24 toward 1 and bears off to space 0. Black moves from 1
// toward 24 and bears off to space 25. Translation for display happens at the message
// level (see FlipSpace), never inside the rules.
const (
	SpaceOffWhite int8 = 0
	SpaceOffBlack int8 = 25
	SpaceBar      int8 = 26
)

// NumCheckers is the number of checkers each color owns.
const NumCheckers = 15

// Color identifies a side of the board.
type Color int8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func (c Color) Valid() bool {
	return c == White || c == Black
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// ParseColor parses a color name. NoColor is returned for anything unknown.
func ParseColor(s string) Color {
	switch s {
	case "white", "w", "1":
		return White
	case "black", "b", "2":
		return Black
	default:
		return NoColor
	}
}

// direction is the sign of travel along canonical spaces.
func (c Color) direction() int8 {
	if c == White {
		return -1
	}
	return 1
}

// OffSpace returns the sentinel space a color bears off to.
func OffSpace(c Color) int8 {
	if c == White {
		return SpaceOffWhite
	}
	return SpaceOffBlack
}

// Point is one of the 24 board positions. A zero Count means the point is empty.
type Point struct {
	Color Color
	Count int8
}

// Board is a complete snapshot of checker placement. It is a value type: assigning a
// Board copies it, which is what speculative move application relies on.
type Board struct {
	Points [25]Point // Index 1-24. Index 0 is unused.
	Bar    [3]int8   // Indexed by Color.
	Off    [3]int8   // Indexed by Color.
}

// NewBoard returns the standard starting layout.
func NewBoard() Board {
	var b Board
	for _, c := range []Color{White, Black} {
		b.place(c, 24, 2)
		b.place(c, 13, 5)
		b.place(c, 8, 3)
		b.place(c, 6, 5)
	}
	return b
}

// place puts count checkers of color c on the point at pip distance pip.
func (b *Board) place(c Color, pip int8, count int8) {
	space := SpaceAt(c, pip)
	b.Points[space] = Point{Color: c, Count: count}
}

// SpaceAt converts a pip distance for color c into a canonical space.
func SpaceAt(c Color, pip int8) int8 {
	if c == White {
		return pip
	}
	return 25 - pip
}

// PipDistance returns how many pips a checker of color c on space must travel to bear
// off. Checkers on the bar are 25 pips away.
func PipDistance(c Color, space int8) int8 {
	if space == SpaceBar {
		return 25
	}
	if c == White {
		return space
	}
	return 25 - space
}

// HomeRange returns the first and last canonical spaces of a color's home board.
func HomeRange(c Color) (from int8, to int8) {
	if c == White {
		return 1, 6
	}
	return 19, 24
}

// InHome reports whether space lies in the home board of color c.
func InHome(c Color, space int8) bool {
	from, to := HomeRange(c)
	return space >= from && space <= to
}

// ValidSpace reports whether space is a board point, the bar or a bear-off sentinel.
func ValidSpace(space int8) bool {
	return space >= SpaceOffWhite && space <= SpaceBar
}

// Destination returns the space a checker of color c reaches from space using die.
// Moves past the last point land on the color's bear-off sentinel.
func Destination(c Color, from int8, die int8) int8 {
	if from == SpaceBar {
		return SpaceAt(c, 25-die)
	}
	to := from + c.direction()*die
	if to <= SpaceOffWhite {
		return SpaceOffWhite
	} else if to >= SpaceOffBlack {
		return SpaceOffBlack
	}
	return to
}

// Count returns the number of checkers color c has on space.
func (b *Board) Count(c Color, space int8) int8 {
	switch {
	case space == SpaceBar:
		return b.Bar[c]
	case space == OffSpace(c):
		return b.Off[c]
	case space < 1 || space > 24:
		return 0
	}
	p := b.Points[space]
	if p.Color != c {
		return 0
	}
	return p.Count
}

// Checkers returns the total number of checkers color c has on the board, on the bar
// and borne off.
func (b *Board) Checkers(c Color) int {
	total := int(b.Bar[c]) + int(b.Off[c])
	for space := 1; space <= 24; space++ {
		if b.Points[space].Color == c {
			total += int(b.Points[space].Count)
		}
	}
	return total
}

// Pips returns the total pip count for color c.
func (b *Board) Pips(c Color) int {
	pips := int(b.Bar[c]) * 25
	for space := int8(1); space <= 24; space++ {
		if b.Points[space].Color == c {
			pips += int(b.Points[space].Count) * int(PipDistance(c, space))
		}
	}
	return pips
}

// Verify checks that both colors still own exactly NumCheckers checkers and that no
// point holds a negative count.
func (b *Board) Verify() error {
	for space := 1; space <= 24; space++ {
		p := b.Points[space]
		if p.Count < 0 || (p.Count > 0 && !p.Color.Valid()) {
			return &ConsistencyError{Color: p.Color, Total: int(p.Count), Detail: fmt.Sprintf("invalid point %d", space)}
		}
	}
	for _, c := range []Color{White, Black} {
		if b.Bar[c] < 0 || b.Off[c] < 0 {
			return &ConsistencyError{Color: c, Total: b.Checkers(c), Detail: "negative bar or borne off count"}
		}
		if total := b.Checkers(c); total != NumCheckers {
			return &ConsistencyError{Color: c, Total: total}
		}
	}
	return nil
}
