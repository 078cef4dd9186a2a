package gammon

import (
	"bytes"
	"fmt"
	"strconv"
)

// VerticalBar is drawn between board quadrants.
const VerticalBar rune = '│'

var (
	boardTop    = []byte("+13-14-15-16-17-18-+---+19-20-21-22-23-24-+")
	boardBottom = []byte("+12-11-10--9--8--7-+---+-6--5--4--3--2--1-+")
)

// FlipSpace translates between canonical spaces and the spaces seen by viewer. Every
// player sees its own home board as points 1 to 6 and bears off to space 0. The
// translation is its own inverse.
func FlipSpace(space int8, viewer Color) int8 {
	if viewer != Black {
		return space
	}
	switch {
	case space == SpaceBar:
		return SpaceBar
	case space == SpaceOffWhite:
		return SpaceOffBlack
	case space == SpaceOffBlack:
		return SpaceOffWhite
	case space >= 1 && space <= 24:
		return 25 - space
	default:
		return space
	}
}

// FlipMoves returns a copy of moves translated by FlipSpace.
func FlipMoves(moves []Move, viewer Color) []Move {
	flipped := make([]Move, len(moves))
	for i, m := range moves {
		flipped[i] = Move{From: FlipSpace(m.From, viewer), To: FlipSpace(m.To, viewer), Die: m.Die}
	}
	return flipped
}

// FormatAndFlipMoves formats moves as seen by viewer.
func FormatAndFlipMoves(moves []Move, viewer Color) []byte {
	return FormatMoves(FlipMoves(moves, viewer))
}

// BoardState renders the board as text from the perspective of viewer. Spectators
// see the board as White.
func (g *Game) BoardState(viewer Color, players [3]Player) []byte {
	if !viewer.Valid() {
		viewer = White
	}
	opponent := viewer.Opponent()

	label := func(c Color) string {
		name := players[c].Name
		if name == "" {
			name = "Waiting..."
		}
		glyph := "o"
		if c == viewer {
			glyph = "x"
		}
		return glyph + " " + name + " (" + strconv.Itoa(players[c].Rating) + ")"
	}
	dice := func(c Color) string {
		if g.Phase == PhasePlaying && g.Turn == c && g.Roll1 > 0 {
			return fmt.Sprintf("  %d  %d  ", g.Roll1, g.Roll2)
		}
		return "  -  -  "
	}

	// cell renders the checkers on a viewer-relative space. height counts up from the
	// edge of the board toward the middle.
	cell := func(space int8, height int) []byte {
		return renderCell(g.Board.Points[FlipSpace(space, viewer)], height, viewer)
	}
	barCell := func(c Color, height int) []byte {
		return renderCell(Point{Color: c, Count: g.Board.Bar[c]}, height, viewer)
	}

	var t bytes.Buffer
	t.Write(boardTop)
	t.WriteByte('\n')
	for row := 0; row < 11; row++ {
		t.WriteRune(VerticalBar)
		for col := 0; col < 12; col++ {
			switch {
			case row < 5:
				t.Write(cell(int8(13+col), row))
			case row > 5:
				t.Write(cell(int8(12-col), 10-row))
			default:
				t.WriteString("   ")
			}
			if col == 5 {
				t.WriteRune(VerticalBar)
				switch {
				case row < 5:
					t.Write(barCell(opponent, row))
				case row > 5:
					t.Write(barCell(viewer, 10-row))
				default:
					t.WriteString("   ")
				}
				t.WriteRune(VerticalBar)
			}
		}
		t.WriteRune(VerticalBar)
		t.WriteString("  ")

		switch row {
		case 0:
			t.WriteString(label(opponent))
			if off := g.Board.Off[opponent]; off != 0 {
				fmt.Fprintf(&t, "  %d off", off)
			}
		case 2:
			t.WriteString(dice(opponent))
		case 5:
			fmt.Fprintf(&t, "  cube %d", g.Cube.Value)
			if g.Cube.Owner.Valid() {
				fmt.Fprintf(&t, " (%s)", g.Cube.Owner)
			}
			if g.Cube.Offered {
				t.WriteString(" offered")
			}
		case 8:
			t.WriteString(dice(viewer))
		case 10:
			t.WriteString(label(viewer))
			if off := g.Board.Off[viewer]; off != 0 {
				fmt.Fprintf(&t, "  %d off", off)
			}
		}
		t.WriteByte('\n')
	}
	t.Write(boardBottom)
	t.WriteByte('\n')
	return t.Bytes()
}

func renderCell(p Point, height int, viewer Color) []byte {
	if p.Count == 0 || int(p.Count) <= height {
		return []byte("   ")
	}
	if height == 4 && p.Count > 5 {
		return []byte(fmt.Sprintf("%2d ", p.Count))
	}
	if p.Color == viewer {
		return []byte(" x ")
	}
	return []byte(" o ")
}
