// Package store persists game sessions, accounts and settlement results.
package store

import (
	"context"
	"errors"
	"time"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/settle"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrConflict = errors.New("session was modified by another request")
)

// Seat is a color's place in a session. TokenHash is the SHA3-256 hash of the token
// that authorizes actions for the seat. It is persisted but never sent to clients.
type Seat struct {
	Name      string
	Account   int // Zero for guests.
	TokenHash string
}

// Taken reports whether a player occupies the seat.
func (s Seat) Taken() bool {
	return s.TokenHash != ""
}

func (s Seat) Participant() settle.Participant {
	return settle.Participant{Name: s.Name, Account: s.Account}
}

// Session is the shared record of one match.
type Session struct {
	ID      string
	Version int64
	Created time.Time
	Updated time.Time
	Name    string
	Seats   [3]Seat // Indexed by gammon.Color.
	Game    *gammon.Game
	Settled bool
	Payout  *settle.Payout `json:",omitempty"`
}

// NewSession returns an unsaved session for a new game played to points.
func NewSession(name string, points int) *Session {
	return &Session{
		Name: name,
		Game: gammon.NewGame(points),
	}
}

// Players returns the seated participants indexed by color.
func (s *Session) Players() [3]settle.Participant {
	var players [3]settle.Participant
	for _, c := range []gammon.Color{gammon.White, gammon.Black} {
		players[c] = s.Seats[c].Participant()
	}
	return players
}

// Open reports whether the session still has a free seat.
func (s *Session) Open() bool {
	return !s.Seats[gammon.White].Taken() || !s.Seats[gammon.Black].Taken()
}

// NeedsSettlement reports whether the game has ended but its result is unrecorded.
func (s *Session) NeedsSettlement() bool {
	return s.Game != nil && s.Game.Completed() && !s.Settled
}

// Store persists sessions. Update is a compare-and-swap: it succeeds only when the
// stored version equals s.Version, and then increments s.Version. A stale write
// returns ErrConflict and changes nothing.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Active(ctx context.Context) ([]*Session, error)
}

// StatsEntry is the number of games completed on one day.
type StatsEntry struct {
	Date  string
	Games int
}

// Accounts stores registered players.
type Accounts interface {
	settle.Ledger
	Register(ctx context.Context, name string, email string, password string) (*settle.Account, error)
	Login(ctx context.Context, name string, password string) (*settle.Account, error)
	Leaderboard(ctx context.Context, limit int) ([]*settle.Account, error)
	DailyStats(ctx context.Context, tz *time.Location) ([]*StatsEntry, error)
}

func newSessionID() string {
	return uuid.NewString()
}

func prepareCreate(s *Session) {
	if s.ID == "" {
		s.ID = newSessionID()
	}
	now := time.Now()
	s.Version = 1
	s.Created = now
	s.Updated = now
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
