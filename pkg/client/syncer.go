package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/store"
)

const (
	DefaultInterval      = 2 * time.Second
	DefaultAutoPassDelay = 2 * time.Second
)

var (
	ErrActionInProgress = errors.New("an action is already in progress")
	ErrSessionGone      = errors.New("session no longer exists")
	ErrNoSession        = errors.New("session has not been fetched")
)

// Syncer keeps a local view of one session in sync with a Remote and submits the
// actions of one seat. Actions are validated against a copy of the local view before
// they are submitted, so a refused action never reaches the server. Only one action
// may be in flight at a time.
type Syncer struct {
	Remote Remote
	ID     string
	Seat   Seat

	Interval      time.Duration // Interval between fetches.
	AutoPassDelay time.Duration // Delay before passing a turn without legal moves.

	// Updates receives each newer version of the session when not nil. Sends do not
	// block; a full channel drops the update.
	Updates chan *store.Session

	session *store.Session
	acting  bool
	lock    sync.Mutex
	refresh chan struct{}
}

// NewSyncer returns a Syncer for the seat held in session id.
func NewSyncer(remote Remote, id string, seat Seat) *Syncer {
	return &Syncer{
		Remote:        remote,
		ID:            id,
		Seat:          seat,
		Interval:      DefaultInterval,
		AutoPassDelay: DefaultAutoPassDelay,
		refresh:       make(chan struct{}, 1),
	}
}

// Session returns the local view of the session, or nil before the first fetch.
func (s *Syncer) Session() *store.Session {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.session == nil {
		return nil
	}
	sess := *s.session
	sess.Game = s.session.Game.Copy()
	return &sess
}

// Fetch replaces the local view with the remote session when it is newer.
func (s *Syncer) Fetch(ctx context.Context) error {
	sess, err := s.Remote.Session(ctx, s.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionGone
	} else if err != nil {
		return fmt.Errorf("failed to fetch session %s: %w", s.ID, err)
	}
	return s.update(sess)
}

func (s *Syncer) update(sess *store.Session) error {
	if sess.Game == nil {
		return fmt.Errorf("session %s has no game", sess.ID)
	}
	err := sess.Game.Board.Verify()
	if err != nil {
		log.Printf("session %s v%d is inconsistent: %s", sess.ID, sess.Version, err)
		return err
	}

	s.lock.Lock()
	if s.session != nil && sess.Version <= s.session.Version {
		s.lock.Unlock()
		return nil
	}
	s.session = sess
	s.lock.Unlock()

	if s.Updates != nil {
		select {
		case s.Updates <- sess:
		default:
		}
	}
	return nil
}

func (s *Syncer) requestRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Submit validates an action against the local view and submits it. Rule errors are
// returned without contacting the server. A conflict triggers an immediate fetch.
func (s *Syncer) Submit(ctx context.Context, a gammon.Action) error {
	s.lock.Lock()
	if s.acting {
		s.lock.Unlock()
		return ErrActionInProgress
	} else if s.session == nil {
		s.lock.Unlock()
		return ErrNoSession
	}
	s.acting = true
	a.Color = s.Seat.Color
	version := s.session.Version
	scratch := s.session.Game.Copy()
	s.lock.Unlock()

	defer func() {
		s.lock.Lock()
		s.acting = false
		s.lock.Unlock()
	}()

	err := scratch.Apply(a)
	if err != nil {
		return err
	}

	sess, err := s.Remote.Submit(ctx, s.ID, s.Seat.Token, version, a)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionGone
	} else if errors.Is(err, store.ErrConflict) {
		if fetchErr := s.Fetch(ctx); fetchErr != nil {
			log.Printf("failed to refetch session %s: %s", s.ID, fetchErr)
		}
		return err
	} else if err != nil {
		return err
	}

	err = s.update(sess)
	s.requestRefresh()
	return err
}

// mustPass reports whether the seat is on turn with dice that cannot be played.
func (s *Syncer) mustPass() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.session == nil || s.acting {
		return false
	}
	g := s.session.Game
	return g.Phase == gammon.PhasePlaying && g.Turn == s.Seat.Color && g.Roll1 != 0 && !g.Cube.Offered && len(g.Remaining) != 0 && len(g.LegalMoves()) == 0
}

// Run fetches the session every Interval until ctx is done or the session is deleted.
// Transport errors are logged and retried on the next fetch. When the seat is on turn
// without a legal move, the turn is passed after AutoPassDelay.
func (s *Syncer) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	var pass <-chan time.Time
	var passTimer *time.Timer
	stopPass := func() {
		if passTimer != nil {
			passTimer.Stop()
		}
		pass = nil
	}
	defer stopPass()

	for {
		err := s.Fetch(ctx)
		if errors.Is(err, ErrSessionGone) {
			return err
		} else if err != nil && ctx.Err() == nil {
			log.Printf("%s", err)
		}

		if !s.mustPass() {
			stopPass()
		} else if pass == nil {
			passTimer = time.NewTimer(s.AutoPassDelay)
			pass = passTimer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		case <-s.refresh:
		case <-pass:
			pass = nil
			err := s.EndTurn(ctx)
			if errors.Is(err, ErrSessionGone) {
				return err
			} else if err != nil && !errors.Is(err, ErrActionInProgress) {
				log.Printf("failed to pass turn in session %s: %s", s.ID, err)
			}
		}
	}
}

func (s *Syncer) action(ctx context.Context, t gammon.ActionType) error {
	return s.Submit(ctx, gammon.Action{Type: t})
}

// RollOpening rolls the opening die.
func (s *Syncer) RollOpening(ctx context.Context) error {
	return s.action(ctx, gammon.ActionOpening)
}

// Start begins play after the opening roll.
func (s *Syncer) Start(ctx context.Context) error {
	return s.action(ctx, gammon.ActionStart)
}

// Roll rolls the dice.
func (s *Syncer) Roll(ctx context.Context) error {
	return s.action(ctx, gammon.ActionRoll)
}

// Move plays one or more checker moves. Either all moves are played or none.
func (s *Syncer) Move(ctx context.Context, moves ...gammon.Move) error {
	return s.Submit(ctx, gammon.Action{Type: gammon.ActionMove, Moves: moves})
}

// Undo restores the board to the start of the turn.
func (s *Syncer) Undo(ctx context.Context) error {
	return s.action(ctx, gammon.ActionUndo)
}

// EndTurn passes the turn to the opponent.
func (s *Syncer) EndTurn(ctx context.Context) error {
	return s.action(ctx, gammon.ActionEndTurn)
}

func (s *Syncer) OfferDouble(ctx context.Context) error {
	return s.action(ctx, gammon.ActionDouble)
}

func (s *Syncer) AcceptDouble(ctx context.Context) error {
	return s.action(ctx, gammon.ActionAccept)
}

func (s *Syncer) DeclineDouble(ctx context.Context) error {
	return s.action(ctx, gammon.ActionDecline)
}

func (s *Syncer) Resign(ctx context.Context) error {
	return s.action(ctx, gammon.ActionResign)
}
