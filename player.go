package gammon

// Player describes a seated player as presented to clients.
type Player struct {
	Color  Color
	Name   string
	Rating int
	Guest  bool // Guests are not rated and receive no payout.
}

func NewPlayer(c Color) Player {
	return Player{
		Color: c,
	}
}
