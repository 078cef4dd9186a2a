package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRemote applies actions the way the server does: version check, then the engine.
type testRemote struct {
	sess    *store.Session
	roller  gammon.Roller
	submits int
	entered chan struct{} // Signalled when Submit is entered, when not nil.
	release chan struct{} // Submit waits for release, when not nil.
	lock    sync.Mutex
}

func newTestRemote(g *gammon.Game, rolls ...int8) *testRemote {
	return &testRemote{
		sess: &store.Session{
			ID:      "test",
			Version: 1,
			Seats: [3]store.Seat{
				gammon.White: {Name: "Guest_alice"},
				gammon.Black: {Name: "Guest_bob"},
			},
			Game: g,
		},
		roller: gammon.FixedRoller(rolls...),
	}
}

func copySession(sess *store.Session) *store.Session {
	buf, err := json.Marshal(sess)
	if err != nil {
		panic(err)
	}
	out := &store.Session{}
	err = json.Unmarshal(buf, out)
	if err != nil {
		panic(err)
	}
	return out
}

func (r *testRemote) Session(ctx context.Context, id string) (*store.Session, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.sess == nil || r.sess.ID != id {
		return nil, store.ErrNotFound
	}
	return copySession(r.sess), nil
}

func (r *testRemote) Submit(ctx context.Context, id string, token string, version int64, a gammon.Action) (*store.Session, error) {
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.submits++
	if r.sess == nil || r.sess.ID != id {
		return nil, store.ErrNotFound
	} else if version != r.sess.Version {
		return nil, store.ErrConflict
	}
	g := r.sess.Game.Copy()
	g.SetRoller(r.roller)
	err := g.Apply(a)
	if err != nil {
		return nil, &StatusError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	r.sess.Game = g
	r.sess.Version++
	return copySession(r.sess), nil
}

// modify changes the remote session as another client would.
func (r *testRemote) modify(f func(g *gammon.Game)) {
	r.lock.Lock()
	defer r.lock.Unlock()

	f(r.sess.Game)
	r.sess.Version++
}

func (r *testRemote) game() *gammon.Game {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.sess.Game.Copy()
}

// playingGame returns a game in which White is on turn and has not rolled.
func playingGame(t *testing.T) *gammon.Game {
	t.Helper()
	g := gammon.NewGame(1)
	g.SetRoller(gammon.FixedRoller(5, 3))
	require.NoError(t, g.RollOpening(gammon.White))
	require.NoError(t, g.RollOpening(gammon.Black))
	require.NoError(t, g.Start(gammon.White))
	g.SetRoller(nil)
	return g
}

func TestSyncerSubmit(t *testing.T) {
	ctx := context.Background()
	remote := newTestRemote(playingGame(t), 6, 1)
	s := NewSyncer(remote, "test", Seat{Color: gammon.White, Token: "white"})
	s.Updates = make(chan *store.Session, 4)

	assert.Nil(t, s.Session())
	assert.ErrorIs(t, s.Roll(ctx), ErrNoSession)

	require.NoError(t, s.Fetch(ctx))
	require.Equal(t, int64(1), s.Session().Version)
	<-s.Updates

	require.NoError(t, s.Roll(ctx))
	sess := s.Session()
	assert.Equal(t, int64(2), sess.Version)
	assert.Equal(t, int8(6), sess.Game.Roll1)
	assert.Equal(t, int8(1), sess.Game.Roll2)
	updated := <-s.Updates
	assert.Equal(t, int64(2), updated.Version)

	require.NoError(t, s.Move(ctx, gammon.Move{From: 13, To: 7}, gammon.Move{From: 8, To: 7}))
	require.NoError(t, s.EndTurn(ctx))
	assert.Equal(t, gammon.Black, s.Session().Game.Turn)
	assert.Equal(t, 3, remote.submits)
}

func TestSyncerLocalValidation(t *testing.T) {
	ctx := context.Background()
	remote := newTestRemote(playingGame(t))
	s := NewSyncer(remote, "test", Seat{Color: gammon.Black, Token: "black"})
	require.NoError(t, s.Fetch(ctx))

	// Given it is White's turn
	// When Black rolls
	err := s.Roll(ctx)

	// Then the action is refused locally and never submitted
	assert.ErrorIs(t, err, gammon.ErrNotYourTurn)
	assert.Equal(t, 0, remote.submits)
	assert.Equal(t, int64(1), s.Session().Version)
}

func TestSyncerConflict(t *testing.T) {
	ctx := context.Background()
	remote := newTestRemote(playingGame(t), 6, 1)
	s := NewSyncer(remote, "test", Seat{Color: gammon.White, Token: "white"})
	require.NoError(t, s.Fetch(ctx))

	// Given the remote session changed after the local view was fetched
	remote.modify(func(g *gammon.Game) {})

	// When an action is submitted
	err := s.Roll(ctx)

	// Then it conflicts and the local view is refreshed
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, int64(2), s.Session().Version)

	require.NoError(t, s.Roll(ctx))
	assert.Equal(t, int64(3), s.Session().Version)
}

func TestSyncerActionInProgress(t *testing.T) {
	ctx := context.Background()
	remote := newTestRemote(playingGame(t), 6, 1)
	remote.entered = make(chan struct{})
	remote.release = make(chan struct{})
	s := NewSyncer(remote, "test", Seat{Color: gammon.White, Token: "white"})
	require.NoError(t, s.Fetch(ctx))

	done := make(chan error)
	go func() {
		done <- s.Roll(ctx)
	}()
	<-remote.entered

	assert.ErrorIs(t, s.Resign(ctx), ErrActionInProgress)

	close(remote.release)
	require.NoError(t, <-done)

	remote.entered = nil
	require.NoError(t, s.Move(ctx, gammon.Move{From: 13, To: 7}))
}

func TestSyncerIgnoresOlderVersions(t *testing.T) {
	ctx := context.Background()
	remote := newTestRemote(playingGame(t), 6, 1)
	s := NewSyncer(remote, "test", Seat{Color: gammon.White, Token: "white"})
	require.NoError(t, s.Fetch(ctx))
	require.NoError(t, s.Roll(ctx))

	stale := copySession(remote.sess)
	stale.Version = 1
	stale.Game = playingGame(t)
	require.NoError(t, s.update(stale))
	assert.Equal(t, int64(2), s.Session().Version)
	assert.Equal(t, int8(6), s.Session().Game.Roll1)
}

func TestSyncerInconsistentBoard(t *testing.T) {
	ctx := context.Background()
	g := playingGame(t)
	g.Board.Points[6].Count = 4
	remote := newTestRemote(g)
	s := NewSyncer(remote, "test", Seat{Color: gammon.White, Token: "white"})

	var consistency *gammon.ConsistencyError
	assert.ErrorAs(t, s.Fetch(ctx), &consistency)
	assert.Nil(t, s.Session())
}

func TestSyncerSessionGone(t *testing.T) {
	remote := newTestRemote(playingGame(t))
	s := NewSyncer(remote, "missing", Seat{Color: gammon.White, Token: "white"})
	s.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, s.Run(ctx), ErrSessionGone)
}

func TestSyncerAutoPass(t *testing.T) {
	// White must enter from the bar but Black holds every point of its home board.
	g := playingGame(t)
	g.Board = gammon.Board{}
	g.Board.Bar[gammon.White] = 1
	g.Board.Points[6] = gammon.Point{Color: gammon.White, Count: 14}
	for space := int8(19); space <= 24; space++ {
		g.Board.Points[space] = gammon.Point{Color: gammon.Black, Count: 2}
	}
	g.Board.Points[18] = gammon.Point{Color: gammon.Black, Count: 3}
	require.NoError(t, g.Board.Verify())

	remote := newTestRemote(g, 6, 5)
	s := NewSyncer(remote, "test", Seat{Color: gammon.White, Token: "white"})
	s.Interval = 10 * time.Millisecond
	s.AutoPassDelay = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Fetch(ctx))
	require.NoError(t, s.Roll(ctx))
	require.Empty(t, s.Session().Game.LegalMoves())

	done := make(chan error)
	go func() {
		done <- s.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return remote.game().Turn == gammon.Black
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSyncerNoAutoPassWithLegalMoves(t *testing.T) {
	remote := newTestRemote(playingGame(t), 6, 1)
	s := NewSyncer(remote, "test", Seat{Color: gammon.White, Token: "white"})
	s.Interval = 10 * time.Millisecond
	s.AutoPassDelay = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Fetch(ctx))
	require.NoError(t, s.Roll(ctx))

	assert.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)
	assert.Equal(t, gammon.White, remote.game().Turn)
}
