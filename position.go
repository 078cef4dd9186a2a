package gammon

import "encoding/base64"

// PositionID returns the GNU Backgammon position ID of b with color c treated as the
// player on roll.
func (b Board) PositionID(c Color) string {
	if !c.Valid() {
		return ""
	}

	var bits []bool
	encode := func(player Color) {
		for pip := int8(1); pip <= 24; pip++ {
			for i := int8(0); i < b.Count(player, SpaceAt(player, pip)); i++ {
				bits = append(bits, true)
			}
			bits = append(bits, false)
		}
		for i := int8(0); i < b.Bar[player]; i++ {
			bits = append(bits, true)
		}
		bits = append(bits, false)
	}
	encode(c)
	encode(c.Opponent())

	out := make([]byte, 10)
	for i, set := range bits {
		if set && i < 80 {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return base64.RawStdEncoding.EncodeToString(out)
}
