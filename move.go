package gammon

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Move is a single checker movement using one die.
type Move struct {
	From int8
	To   int8
	Die  int8
}

func (m Move) String() string {
	return FormatSpace(m.From) + "/" + FormatSpace(m.To)
}

// FormatSpace returns the textual name of a canonical space.
func FormatSpace(space int8) string {
	switch space {
	case SpaceBar:
		return "bar"
	case SpaceOffWhite, SpaceOffBlack:
		return "off"
	default:
		return strconv.Itoa(int(space))
	}
}

// ParseSpace parses a space name. The word "off" is resolved to the bear-off sentinel
// of color c. -1 is returned when the space is invalid.
func ParseSpace(space string, c Color) int8 {
	switch strings.ToLower(strings.TrimSpace(space)) {
	case "bar", "b":
		return SpaceBar
	case "off", "o", "home", "h":
		if !c.Valid() {
			return -1
		}
		return OffSpace(c)
	}
	v, err := strconv.Atoi(space)
	if err != nil || v < 1 || v > 24 {
		return -1
	}
	return int8(v)
}

// ParseMoves parses moves in the form FROM/TO separated by spaces, for example
// "13/8 bar/20 6/off". Die values are left unset.
func ParseMoves(s string, c Color) ([]Move, error) {
	var moves []Move
	for _, field := range strings.Fields(s) {
		split := strings.Split(field, "/")
		if len(split) != 2 {
			return nil, fmt.Errorf("invalid move %q", field)
		}
		from, to := ParseSpace(split[0], c), ParseSpace(split[1], c)
		if from == -1 || to == -1 {
			return nil, fmt.Errorf("invalid move %q", field)
		}
		moves = append(moves, Move{From: from, To: to})
	}
	if len(moves) == 0 {
		return nil, fmt.Errorf("no moves specified")
	}
	return moves, nil
}

// FormatMoves returns moves in the form FROM/TO separated by spaces.
func FormatMoves(moves []Move) []byte {
	var out bytes.Buffer
	for i, m := range moves {
		if i > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(m.String())
	}
	return out.Bytes()
}

// SortMoves orders moves by descending source and destination spaces, then die.
func SortMoves(moves []Move) {
	sort.Slice(moves, func(i, j int) bool {
		if moves[i].From != moves[j].From {
			return moves[i].From > moves[j].From
		} else if moves[i].To != moves[j].To {
			return moves[i].To > moves[j].To
		}
		return moves[i].Die < moves[j].Die
	})
}
