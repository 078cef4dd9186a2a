// Package settle applies the rating and Bones effects of completed games.
package settle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/boneclub/gammon"
	"github.com/jlouis/glicko2"
)

// DefaultRating is the rating, multiplied by 100, of a new account.
const DefaultRating = 150000

// DefaultBonesPerPoint is the number of Bones exchanged per point won.
const DefaultBonesPerPoint = 10

var (
	ErrNoPayout       = errors.New("no payout recorded")
	ErrAlreadySettled = errors.New("game already settled")
	ErrNotCompleted   = errors.New("game is not completed")
	ErrNoAccount      = errors.New("account not found")
)

// Account is a registered player.
type Account struct {
	ID     int
	Name   string
	Email  string `json:"-"`
	Rating int // Multiplied by 100.
	Bones  int
	Wins   int
	Losses int
}

// Participant is a seated player. Account is zero for guests.
type Participant struct {
	Name    string
	Account int
}

// Entry is the effect of a settlement on one participant.
type Entry struct {
	Name        string
	Account     int
	Rating      int // Rating after settlement, multiplied by 100.
	RatingDelta int
	Bones       int // Bones after settlement.
	BonesDelta  int
}

// Payout is the result of settling a completed game. It is shown to both players.
type Payout struct {
	SessionID string
	Winner    gammon.Color
	WinType   gammon.WinType
	Points    int
	Cube      int
	Entries   [3]Entry // Indexed by Color.
	Replay    []string `json:",omitempty"`
	Started   time.Time
	Settled   time.Time
}

// Ledger stores accounts and payouts. Commit must apply every account change of the
// payout and record it atomically, and return ErrAlreadySettled when a payout for the
// same session exists.
type Ledger interface {
	Account(ctx context.Context, id int) (*Account, error)
	Payout(ctx context.Context, sessionID string) (*Payout, error)
	Commit(ctx context.Context, p *Payout) error
}

// Settler computes payouts for completed games.
type Settler struct {
	Ledger        Ledger
	BonesPerPoint int
}

func NewSettler(ledger Ledger, bonesPerPoint int) *Settler {
	if bonesPerPoint <= 0 {
		bonesPerPoint = DefaultBonesPerPoint
	}
	return &Settler{
		Ledger:        ledger,
		BonesPerPoint: bonesPerPoint,
	}
}

// Settle records the outcome of g. Settling the same session again returns the payout
// recorded the first time without applying it twice.
func (s *Settler) Settle(ctx context.Context, sessionID string, g *gammon.Game, players [3]Participant) (*Payout, error) {
	result := g.Result()
	if result == nil {
		return nil, ErrNotCompleted
	}

	existing, err := s.Ledger.Payout(ctx, sessionID)
	if err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNoPayout) {
		return nil, fmt.Errorf("failed to look up payout: %w", err)
	}

	p := &Payout{
		SessionID: sessionID,
		Winner:    result.Winner,
		WinType:   result.WinType,
		Points:    result.Points,
		Cube:      result.Cube,
		Replay:    append([]string(nil), g.Log...),
		Started:   g.Started,
		Settled:   time.Now(),
	}

	var accounts [3]*Account
	for _, c := range []gammon.Color{gammon.White, gammon.Black} {
		p.Entries[c] = Entry{Name: players[c].Name, Account: players[c].Account}
		if players[c].Account == 0 {
			continue
		}
		a, err := s.Ledger.Account(ctx, players[c].Account)
		if err != nil {
			return nil, fmt.Errorf("failed to load account %d: %w", players[c].Account, err)
		}
		accounts[c] = a
		p.Entries[c].Rating = a.Rating
		p.Entries[c].Bones = a.Bones
	}

	winner, loser := result.Winner, result.Loser
	if accounts[winner] != nil && accounts[loser] != nil && accounts[winner].ID != accounts[loser].ID {
		winnerRating, loserRating := rate(accounts[winner].Rating, accounts[loser].Rating)
		p.Entries[winner].RatingDelta = winnerRating - accounts[winner].Rating
		p.Entries[loser].RatingDelta = loserRating - accounts[loser].Rating
		p.Entries[winner].Rating = winnerRating
		p.Entries[loser].Rating = loserRating
	}

	stake := result.Points * s.BonesPerPoint
	if accounts[winner] != nil {
		p.Entries[winner].BonesDelta = stake
		p.Entries[winner].Bones += stake
	}
	if accounts[loser] != nil {
		debit := stake
		if debit > accounts[loser].Bones {
			debit = accounts[loser].Bones
		}
		p.Entries[loser].BonesDelta = -debit
		p.Entries[loser].Bones -= debit
	}

	err = s.Ledger.Commit(ctx, p)
	if errors.Is(err, ErrAlreadySettled) {
		return s.Ledger.Payout(ctx, sessionID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to commit payout: %w", err)
	}
	return p, nil
}

// rate returns the new ratings of the winner and loser.
func rate(winner int, loser int) (int, int) {
	r1, r2 := float64(winner)/100, float64(loser)/100
	r1New, _, _ := glicko2.Rank(r1, 50, 0.06, []glicko2.Opponent{ratingPlayer{r2, 30, 0.06, 1}}, 0.6)
	r2New, _, _ := glicko2.Rank(r2, 50, 0.06, []glicko2.Opponent{ratingPlayer{r1, 30, 0.06, 0}}, 0.6)
	return int(r1New * 100), int(r2New * 100)
}

type ratingPlayer struct {
	r       float64
	rd      float64
	sigma   float64
	outcome float64
}

func (p ratingPlayer) R() float64 {
	return p.r
}

func (p ratingPlayer) RD() float64 {
	return p.rd
}

func (p ratingPlayer) Sigma() float64 {
	return p.sigma
}

func (p ratingPlayer) SJ() float64 {
	return p.outcome
}
