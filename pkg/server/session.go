package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/store"
	"github.com/google/uuid"
)

const maxPoints = 64

var (
	ErrInvalidToken = errors.New("invalid seat token")
	ErrSeatTaken    = errors.New("seat is taken")
	ErrSessionFull  = errors.New("session is full")
	ErrWrongSeat    = errors.New("action submitted for another seat")
)

// RejectedError is returned when the game refuses an action.
type RejectedError struct {
	Action gammon.Action
	Err    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Action.Type, e.Err)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// requestError is a malformed or invalid request.
type requestError struct {
	error
}

func (e requestError) Unwrap() error {
	return e.error
}

func badRequest(format string, args ...interface{}) error {
	return requestError{fmt.Errorf(format, args...)}
}

func guestName(name string) string {
	if strings.HasPrefix(strings.ToLower(name), "guest_") {
		return "Guest_" + name[6:]
	}
	return "Guest_" + name
}

// createSession stores a new session played to points.
func (s *server) createSession(ctx context.Context, name string, points int) (*store.Session, error) {
	if points < 1 {
		return nil, badRequest("points must be at least 1")
	} else if points > maxPoints {
		points = maxPoints
	}
	name = strings.TrimSpace(name)
	if len(name) > 64 {
		name = name[:64]
	}

	sess := store.NewSession(name, points)
	err := s.store.Create(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.invalidateListings()
	log.Printf("Created session %s (%d points)", sess.ID, points)
	return sess, nil
}

// joinSession seats a player in the session and returns the seat token. When c is
// NoColor the first free seat is assigned.
func (s *server) joinSession(ctx context.Context, id string, name string, account int, c gammon.Color) (*store.Session, gammon.Color, string, error) {
	if c != gammon.NoColor && !c.Valid() {
		return nil, gammon.NoColor, "", badRequest("%s", gammon.ErrInvalidColor)
	}

	token := uuid.NewString()
	hash := store.HashToken(token)

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, gammon.NoColor, "", err
	} else if sess.Game.Completed() {
		return nil, gammon.NoColor, "", gammon.ErrGameOver
	}

	for _, other := range []gammon.Color{gammon.White, gammon.Black} {
		seat := sess.Seats[other]
		if (account != 0 && seat.Account == account) || (account == 0 && seat.Taken() && seat.Name == name) {
			return nil, gammon.NoColor, "", ErrSeatTaken
		}
	}
	switch {
	case c.Valid() && sess.Seats[c].Taken():
		return nil, gammon.NoColor, "", ErrSeatTaken
	case c.Valid():
	case !sess.Seats[gammon.White].Taken():
		c = gammon.White
	case !sess.Seats[gammon.Black].Taken():
		c = gammon.Black
	default:
		return nil, gammon.NoColor, "", ErrSessionFull
	}

	sess.Seats[c] = store.Seat{
		Name:      name,
		Account:   account,
		TokenHash: hash,
	}
	err = s.store.Update(ctx, sess)
	if err != nil {
		return nil, gammon.NoColor, "", err
	}
	s.invalidateListings()
	log.Printf("%s joined session %s as %s", name, sess.ID, c)
	return sess, c, token, nil
}

// leaveSession frees the seat held by token. Seats can only be given up before play
// begins; afterwards leaving forfeits the game.
func (s *server) leaveSession(ctx context.Context, id string, token string) (*store.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := seatColor(sess, token)
	if c == gammon.NoColor {
		return nil, ErrInvalidToken
	}

	g := sess.Game
	if g.Completed() {
		return sess, nil
	} else if g.Phase != gammon.PhaseOpening || len(g.Log) != 0 || g.Opening[gammon.White] != 0 || g.Opening[gammon.Black] != 0 {
		return s.act(ctx, id, token, 0, gammon.Action{Type: gammon.ActionResign, Color: c})
	}

	sess.Seats[c] = store.Seat{}
	sess.Game = gammon.NewGame(g.Points)
	err = s.store.Update(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.invalidateListings()
	return sess, nil
}

// deleteSession removes a session. Only seated players may delete it.
func (s *server) deleteSession(ctx context.Context, id string, token string) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	} else if seatColor(sess, token) == gammon.NoColor {
		return ErrInvalidToken
	}
	err = s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.invalidateListings()
	return nil
}

func seatColor(sess *store.Session, token string) gammon.Color {
	for _, c := range []gammon.Color{gammon.White, gammon.Black} {
		if store.CheckToken(token, sess.Seats[c].TokenHash) {
			return c
		}
	}
	return gammon.NoColor
}

// act applies an action on behalf of the seat holding token. The stored record is
// authoritative: the action is replayed against it and written back with a version
// check. A non-zero version must match the stored version.
func (s *server) act(ctx context.Context, id string, token string, version int64, a gammon.Action) (*store.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	} else if version != 0 && version != sess.Version {
		return nil, store.ErrConflict
	}

	c := seatColor(sess, token)
	if c == gammon.NoColor {
		return nil, ErrInvalidToken
	} else if a.Color != gammon.NoColor && a.Color != c {
		return nil, ErrWrongSeat
	}
	a.Color = c

	if !sess.Seats[c.Opponent()].Taken() {
		return nil, &RejectedError{Action: a, Err: errors.New("waiting for an opponent")}
	}

	sess.Game.SetRoller(s.roller)
	err = sess.Game.Apply(a)
	if err != nil {
		return nil, &RejectedError{Action: a, Err: err}
	}

	err = s.store.Update(ctx, sess)
	if err != nil {
		return nil, err
	}

	if s.verbose {
		log.Printf("Session %s v%d: %s", sess.ID, sess.Version, a)
	}
	s.notifyAction(sess, a)

	if sess.NeedsSettlement() {
		s.finalize(ctx, sess)
	}
	return sess, nil
}

// finalize settles a completed session and marks it settled. Settlement is idempotent,
// so a finalize interrupted before the record is updated is retried by handleGames.
func (s *server) finalize(ctx context.Context, sess *store.Session) {
	payout, err := s.settler.Settle(ctx, sess.ID, sess.Game, sess.Players())
	if err != nil {
		log.Printf("failed to settle session %s: %s", sess.ID, err)
		return
	}

	const attempts = 3
	for i := 0; ; i++ {
		sess.Settled = true
		sess.Payout = payout
		err = s.store.Update(ctx, sess)
		if err == nil {
			break
		} else if !errors.Is(err, store.ErrConflict) || i == attempts-1 {
			log.Printf("failed to mark session %s settled: %s", sess.ID, err)
			return
		}

		sess, err = s.store.Get(ctx, sess.ID)
		if err != nil {
			log.Printf("failed to mark session %s settled: %s", payout.SessionID, err)
			return
		} else if sess.Settled {
			return
		}
	}
	s.invalidateListings()

	log.Printf("Settled session %s: %s wins %d points (%s)", sess.ID, payout.Entries[payout.Winner].Name, payout.Points, payout.WinType)
	s.notifyResult(sess, payout)
	go s.mailResult(payout)
}

// view returns a copy of sess safe to send to clients.
func view(sess *store.Session) *store.Session {
	out := *sess
	for c := range out.Seats {
		out.Seats[c].TokenHash = ""
	}
	return &out
}

// players returns the seated players as presented to clients.
func (s *server) players(ctx context.Context, sess *store.Session) [3]gammon.Player {
	var players [3]gammon.Player
	for _, c := range []gammon.Color{gammon.White, gammon.Black} {
		seat := sess.Seats[c]
		p := gammon.NewPlayer(c)
		p.Name = seat.Name
		p.Guest = seat.Account == 0
		if seat.Account != 0 && s.accounts != nil {
			a, err := s.accounts.Account(ctx, seat.Account)
			if err == nil {
				p.Rating = a.Rating / 100
			}
		}
		players[c] = p
	}
	return players
}

func listing(sess *store.Session) gammon.GameListing {
	var players int
	for _, c := range []gammon.Color{gammon.White, gammon.Black} {
		if sess.Seats[c].Taken() {
			players++
		}
	}
	name := sess.Name
	if name == "" {
		name = "(No name)"
	}
	return gammon.GameListing{
		ID:      sess.ID,
		Name:    name,
		Points:  sess.Game.Points,
		Players: players,
		Phase:   sess.Game.Phase,
	}
}
