package store

import (
	"context"
	"os"
	"testing"
	"time"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/settle"
	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Registration hashes passwords on every test; the production parameters are slow.
	passwordArgon2id = &argon2id.Params{
		Memory:      16 * 1024,
		Iterations:  1,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
	os.Exit(m.Run())
}

// testSessions exercises the Store contract against st, which must be empty.
func testSessions(t *testing.T, ctx context.Context, st Store) {
	t.Run("CreateAndGet", func(t *testing.T) {
		s := NewSession("create", 3)
		require.NoError(t, st.Create(ctx, s))
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, int64(1), s.Version)

		got, err := st.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, "create", got.Name)
		assert.Equal(t, int64(1), got.Version)
		require.NotNil(t, got.Game)
		assert.Equal(t, 3, got.Game.Points)
		assert.Equal(t, gammon.NewBoard(), got.Game.Board)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := st.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpdateIncrementsVersion", func(t *testing.T) {
		s := NewSession("update", 1)
		require.NoError(t, st.Create(ctx, s))

		s.Seats[gammon.White] = Seat{Name: "alice", TokenHash: "hash"}
		require.NoError(t, st.Update(ctx, s))
		assert.Equal(t, int64(2), s.Version)

		got, err := st.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, "alice", got.Seats[gammon.White].Name)
		assert.Equal(t, "hash", got.Seats[gammon.White].TokenHash)
	})

	t.Run("UpdateConflict", func(t *testing.T) {
		// Given two readers of the same version
		s := NewSession("conflict", 1)
		require.NoError(t, st.Create(ctx, s))
		first, err := st.Get(ctx, s.ID)
		require.NoError(t, err)
		second, err := st.Get(ctx, s.ID)
		require.NoError(t, err)

		// When both write
		first.Name = "first"
		require.NoError(t, st.Update(ctx, first))
		second.Name = "second"
		err = st.Update(ctx, second)

		// Then the stale write is rejected and changes nothing
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, int64(1), second.Version)
		got, err := st.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Name)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := NewSession("missing", 1)
		s.ID = "missing"
		s.Version = 1
		assert.ErrorIs(t, st.Update(ctx, s), ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := NewSession("delete", 1)
		require.NoError(t, st.Create(ctx, s))
		require.NoError(t, st.Delete(ctx, s.ID))

		_, err := st.Get(ctx, s.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, st.Delete(ctx, s.ID), ErrNotFound)
	})

	t.Run("Active", func(t *testing.T) {
		playing := NewSession("playing", 1)
		require.NoError(t, st.Create(ctx, playing))

		unsettled := NewSession("unsettled", 1)
		require.NoError(t, st.Create(ctx, unsettled))
		require.NoError(t, unsettled.Game.Resign(gammon.White))
		require.NoError(t, st.Update(ctx, unsettled))

		settled := NewSession("settled", 1)
		require.NoError(t, st.Create(ctx, settled))
		require.NoError(t, settled.Game.Resign(gammon.Black))
		settled.Settled = true
		require.NoError(t, st.Update(ctx, settled))

		sessions, err := st.Active(ctx)
		require.NoError(t, err)
		ids := make(map[string]bool)
		for _, s := range sessions {
			ids[s.ID] = true
		}
		assert.True(t, ids[playing.ID])
		assert.True(t, ids[unsettled.ID])
		assert.False(t, ids[settled.ID])
	})
}

// testAccounts exercises the Accounts contract against a, which must be empty.
func testAccounts(t *testing.T, ctx context.Context, a Accounts) {
	alice, err := a.Register(ctx, "Alice", "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Name)
	assert.Equal(t, settle.DefaultRating, alice.Rating)

	bob, err := a.Register(ctx, "bob", "bob@example.com", "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, alice.ID, bob.ID)

	t.Run("Register", func(t *testing.T) {
		_, err := a.Register(ctx, "ALICE", "other@example.com", "secret")
		assert.ErrorIs(t, err, ErrNameTaken)
		_, err = a.Register(ctx, "carol", "Alice@example.com", "secret")
		assert.ErrorIs(t, err, ErrEmailTaken)
		_, err = a.Register(ctx, "guest_carol", "carol@example.com", "secret")
		assert.Error(t, err)
		_, err = a.Register(ctx, "1234", "carol@example.com", "secret")
		assert.Error(t, err)
	})

	t.Run("Login", func(t *testing.T) {
		got, err := a.Login(ctx, "alice", "secret")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		got, err = a.Login(ctx, "bob@example.com", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, got.ID)

		_, err = a.Login(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidLogin)
		_, err = a.Login(ctx, "nobody", "secret")
		assert.ErrorIs(t, err, ErrInvalidLogin)
	})

	t.Run("Account", func(t *testing.T) {
		got, err := a.Account(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", got.Name)

		_, err = a.Account(ctx, 9999)
		assert.ErrorIs(t, err, settle.ErrNoAccount)
	})

	t.Run("Commit", func(t *testing.T) {
		_, err := a.Payout(ctx, "game")
		require.ErrorIs(t, err, settle.ErrNoPayout)

		p := &settle.Payout{
			SessionID: "game",
			Winner:    gammon.Black,
			WinType:   gammon.WinSingle,
			Points:    1,
			Cube:      1,
			Started:   time.Now().Add(-time.Minute),
			Settled:   time.Now(),
		}
		p.Entries[gammon.White] = settle.Entry{Name: "alice", Account: alice.ID, Rating: 149000, RatingDelta: -1000}
		p.Entries[gammon.Black] = settle.Entry{Name: "bob", Account: bob.ID, Rating: 151000, RatingDelta: 1000, Bones: 10, BonesDelta: 10}
		require.NoError(t, a.Commit(ctx, p))
		assert.ErrorIs(t, a.Commit(ctx, p), settle.ErrAlreadySettled)

		stored, err := a.Payout(ctx, "game")
		require.NoError(t, err)
		assert.Equal(t, gammon.Black, stored.Winner)
		assert.Equal(t, 10, stored.Entries[gammon.Black].BonesDelta)

		got, err := a.Account(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, 151000, got.Rating)
		assert.Equal(t, 10, got.Bones)
		assert.Equal(t, 1, got.Wins)
		assert.Equal(t, 0, got.Losses)

		got, err = a.Account(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 149000, got.Rating)
		assert.Equal(t, 1, got.Losses)
	})

	t.Run("Leaderboard", func(t *testing.T) {
		accounts, err := a.Leaderboard(ctx, 10)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "bob", accounts[0].Name)
		assert.Equal(t, "alice", accounts[1].Name)

		accounts, err = a.Leaderboard(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, accounts, 1)
	})

	t.Run("DailyStats", func(t *testing.T) {
		stats, err := a.DailyStats(ctx, time.UTC)
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, time.Now().UTC().Format("2006-01-02"), stats[0].Date)
		assert.Equal(t, 1, stats[0].Games)
	})
}
