package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"codeberg.org/boneclub/gammon"
	"codeberg.org/boneclub/gammon/pkg/settle"
	"github.com/jackc/pgx/v5"
)

const databaseSchema = `
CREATE TABLE account (
	id       serial PRIMARY KEY,
	created  bigint NOT NULL,
	active   bigint NOT NULL,
	email    text NOT NULL,
	username text NOT NULL,
	password text NOT NULL,
	rating   integer NOT NULL DEFAULT 150000,
	bones    integer NOT NULL DEFAULT 0,
	wins     integer NOT NULL DEFAULT 0,
	losses   integer NOT NULL DEFAULT 0
);
CREATE TABLE session (
	id        text PRIMARY KEY,
	version   bigint NOT NULL,
	created   bigint NOT NULL,
	updated   bigint NOT NULL,
	completed smallint NOT NULL DEFAULT 0,
	settled   smallint NOT NULL DEFAULT 0,
	record    text NOT NULL
);
CREATE TABLE game (
	id       serial PRIMARY KEY,
	session  text NOT NULL UNIQUE,
	started  bigint NOT NULL,
	ended    bigint NOT NULL,
	player1  text NOT NULL,
	account1 integer NOT NULL,
	player2  text NOT NULL,
	account2 integer NOT NULL,
	points   integer NOT NULL,
	winner   integer NOT NULL,
	wintype  integer NOT NULL,
	payout   text NOT NULL,
	replay   text NOT NULL DEFAULT ''
);
`

const databaseSchemaName = "boneclub"

// Postgres is a Store and Accounts implementation backed by PostgreSQL. Queries are
// serialized over a single connection.
type Postgres struct {
	db   *pgx.Conn
	lock sync.Mutex
}

var (
	_ Store    = &Postgres{}
	_ Accounts = &Postgres{}
)

// NewPostgres connects to dataSource and creates the database schema when it does
// not exist yet.
func NewPostgres(ctx context.Context, dataSource string) (*Postgres, error) {
	db, err := pgx.Connect(ctx, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	p := &Postgres{db: db}

	_, err = db.Exec(ctx, "SELECT 1=1")
	if err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to test database connection: %w", err)
	}

	err = p.initDB(ctx)
	if err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return p, nil
}

func (p *Postgres) Close(ctx context.Context) error {
	return p.db.Close(ctx)
}

func (p *Postgres) begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, "SET SCHEMA '"+databaseSchemaName+"'")
	if err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

func (p *Postgres) initDB(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	_, err := p.db.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+databaseSchemaName)
	if err != nil {
		return err
	}

	tx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var result int
	err = tx.QueryRow(ctx, "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = 'session'", databaseSchemaName).Scan(&result)
	if err != nil {
		return err
	} else if result > 0 {
		return nil // Database has been initialized.
	}

	_, err = tx.Exec(ctx, databaseSchema)
	if err != nil {
		return err
	}
	log.Println("Initialized database schema")
	return tx.Commit(ctx)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func completed(s *Session) bool {
	return s.Game != nil && s.Game.Completed()
}

func (p *Postgres) Create(ctx context.Context, s *Session) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	prepareCreate(s)
	record, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "INSERT INTO session (id, version, created, updated, completed, settled, record) VALUES ($1, $2, $3, $4, $5, $6, $7)", s.ID, s.Version, s.Created.Unix(), s.Updated.Unix(), boolInt(completed(s)), boolInt(s.Settled), string(record))
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Get(ctx context.Context, id string) (*Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	tx, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var record string
	err = tx.QueryRow(ctx, "SELECT record FROM session WHERE id = $1", id).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return decodeSession([]byte(record))
}

func (p *Postgres) Update(ctx context.Context, s *Session) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	next := *s
	next.Version++
	next.Updated = time.Now()
	record, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "UPDATE session SET version = $1, updated = $2, completed = $3, settled = $4, record = $5 WHERE id = $6 AND version = $7", next.Version, next.Updated.Unix(), boolInt(completed(&next)), boolInt(next.Settled), string(record), s.ID, s.Version)
	if err != nil {
		return err
	} else if tag.RowsAffected() == 0 {
		var result int
		err = tx.QueryRow(ctx, "SELECT COUNT(*) FROM session WHERE id = $1", s.ID).Scan(&result)
		if err != nil {
			return err
		} else if result == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	s.Version, s.Updated = next.Version, next.Updated
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	tx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "DELETE FROM session WHERE id = $1", id)
	if err != nil {
		return err
	} else if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Active(ctx context.Context) ([]*Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	tx, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, "SELECT record FROM session WHERE completed = 0 OR settled = 0 ORDER BY created ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	var record string
	for rows.Next() {
		err = rows.Scan(&record)
		if err != nil {
			return nil, err
		}
		s, err := decodeSession([]byte(record))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (p *Postgres) Register(ctx context.Context, name string, email string, password string) (*settle.Account, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}
	name, email = strings.ToLower(name), strings.ToLower(strings.TrimSpace(email))

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	tx, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var result int
	err = tx.QueryRow(ctx, "SELECT COUNT(*) FROM account WHERE email = $1", email).Scan(&result)
	if err != nil {
		return nil, err
	} else if result > 0 {
		return nil, ErrEmailTaken
	}

	err = tx.QueryRow(ctx, "SELECT COUNT(*) FROM account WHERE username = $1", name).Scan(&result)
	if err != nil {
		return nil, err
	} else if result > 0 {
		return nil, ErrNameTaken
	}

	a := &settle.Account{
		Name:   name,
		Email:  email,
		Rating: settle.DefaultRating,
	}
	timestamp := time.Now().Unix()
	err = tx.QueryRow(ctx, "INSERT INTO account (created, active, email, username, password) VALUES ($1, $2, $3, $4, $5) RETURNING id", timestamp, timestamp, email, name, passwordHash).Scan(&a.ID)
	if err != nil {
		return nil, err
	}
	return a, tx.Commit(ctx)
}

func (p *Postgres) Login(ctx context.Context, name string, password string) (*settle.Account, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidLogin
	}

	p.lock.Lock()
	a := &settle.Account{}
	var passwordHash string
	err := p.db.QueryRow(ctx, "SELECT id, email, username, password, rating, bones, wins, losses FROM "+databaseSchemaName+".account WHERE username = $1 OR email = $2", name, name).Scan(&a.ID, &a.Email, &a.Name, &passwordHash, &a.Rating, &a.Bones, &a.Wins, &a.Losses)
	p.lock.Unlock()
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidLogin
	} else if err != nil {
		return nil, err
	} else if passwordHash == "" {
		return nil, fmt.Errorf("account disabled")
	}

	if !checkPassword(password, passwordHash) {
		return nil, ErrInvalidLogin
	}
	return a, nil
}

func (p *Postgres) Account(ctx context.Context, id int) (*settle.Account, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	tx, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	a := &settle.Account{}
	err = tx.QueryRow(ctx, "SELECT id, email, username, rating, bones, wins, losses FROM account WHERE id = $1", id).Scan(&a.ID, &a.Email, &a.Name, &a.Rating, &a.Bones, &a.Wins, &a.Losses)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, settle.ErrNoAccount
	} else if err != nil {
		return nil, err
	}
	return a, nil
}

func (p *Postgres) Payout(ctx context.Context, sessionID string) (*settle.Payout, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	tx, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var record string
	err = tx.QueryRow(ctx, "SELECT payout FROM game WHERE session = $1", sessionID).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, settle.ErrNoPayout
	} else if err != nil {
		return nil, err
	}

	payout := &settle.Payout{}
	err = json.Unmarshal([]byte(record), payout)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal payout: %w", err)
	}
	return payout, nil
}

func (p *Postgres) Commit(ctx context.Context, payout *settle.Payout) error {
	record, err := json.Marshal(payout)
	if err != nil {
		return fmt.Errorf("failed to marshal payout: %w", err)
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	tx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var result int
	err = tx.QueryRow(ctx, "SELECT COUNT(*) FROM game WHERE session = $1", payout.SessionID).Scan(&result)
	if err != nil {
		return err
	} else if result > 0 {
		return settle.ErrAlreadySettled
	}

	for _, c := range []gammon.Color{gammon.White, gammon.Black} {
		entry := payout.Entries[c]
		if entry.Account == 0 {
			continue
		}
		var wins, losses int
		if c == payout.Winner {
			wins = 1
		} else {
			losses = 1
		}
		tag, err := tx.Exec(ctx, "UPDATE account SET rating = $1, bones = $2, wins = wins + $3, losses = losses + $4, active = $5 WHERE id = $6", entry.Rating, entry.Bones, wins, losses, time.Now().Unix(), entry.Account)
		if err != nil {
			return err
		} else if tag.RowsAffected() == 0 {
			return settle.ErrNoAccount
		}
	}

	white, black := payout.Entries[gammon.White], payout.Entries[gammon.Black]
	_, err = tx.Exec(ctx, "INSERT INTO game (session, started, ended, player1, account1, player2, account2, points, winner, wintype, payout, replay) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)", payout.SessionID, payout.Started.Unix(), payout.Settled.Unix(), white.Name, white.Account, black.Name, black.Account, payout.Points, int(payout.Winner), int(payout.WinType), string(record), strings.Join(payout.Replay, "\n"))
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Leaderboard(ctx context.Context, limit int) ([]*settle.Account, error) {
	if limit <= 0 {
		limit = 100
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	tx, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, "SELECT id, username, rating, bones, wins, losses FROM account ORDER BY rating DESC, id ASC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*settle.Account
	for rows.Next() {
		a := &settle.Account{}
		err = rows.Scan(&a.ID, &a.Name, &a.Rating, &a.Bones, &a.Wins, &a.Losses)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (p *Postgres) DailyStats(ctx context.Context, tz *time.Location) ([]*StatsEntry, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	tx, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var earliestGame int64
	err = tx.QueryRow(ctx, "SELECT ended FROM game ORDER BY ended ASC LIMIT 1").Scan(&earliestGame)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var result []*StatsEntry
	earliest := midnight(time.Unix(earliestGame, 0).In(tz))
	rangeStart, rangeEnd := earliest.Unix(), earliest.AddDate(0, 0, 1).Unix()
	var count int
	for {
		err = tx.QueryRow(ctx, "SELECT COUNT(*) FROM game WHERE ended >= $1 AND ended < $2", rangeStart, rangeEnd).Scan(&count)
		if err != nil {
			return nil, err
		}
		if count != 0 {
			result = append(result, &StatsEntry{
				Date:  earliest.Format("2006-01-02"),
				Games: count,
			})
		}

		earliest = earliest.AddDate(0, 0, 1)
		rangeStart, rangeEnd = rangeEnd, earliest.AddDate(0, 0, 1).Unix()
		if rangeStart >= time.Now().Unix() {
			break
		}
	}
	return result, nil
}
