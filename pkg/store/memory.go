package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"codeberg.org/boneclub/gammon/pkg/settle"
)

var (
	ErrNameTaken    = errors.New("username already in use")
	ErrEmailTaken   = errors.New("email address already in use")
	ErrInvalidLogin = errors.New("no account was found with the provided username and password")
)

// Memory is a Store and Accounts implementation kept in process memory. Records are
// stored encoded so callers never share state with the store.
type Memory struct {
	sessions map[string][]byte
	accounts []*memoryAccount
	payouts  map[string]*settle.Payout
	lock     sync.Mutex
}

type memoryAccount struct {
	settle.Account
	passwordHash string
}

var (
	_ Store    = &Memory{}
	_ Accounts = &Memory{}
)

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string][]byte),
		payouts:  make(map[string]*settle.Payout),
	}
}

func (m *Memory) Create(ctx context.Context, s *Session) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	prepareCreate(s)
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	buf, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	m.sessions[s.ID] = buf
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*Session, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	buf, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return decodeSession(buf)
}

func (m *Memory) Update(ctx context.Context, s *Session) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	buf, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	stored, err := decodeSession(buf)
	if err != nil {
		return err
	} else if stored.Version != s.Version {
		return ErrConflict
	}

	next := *s
	next.Version++
	next.Updated = time.Now()
	buf, err = json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	m.sessions[s.ID] = buf
	s.Version, s.Updated = next.Version, next.Updated
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Memory) Active(ctx context.Context) ([]*Session, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	var sessions []*Session
	for _, buf := range m.sessions {
		s, err := decodeSession(buf)
		if err != nil {
			return nil, err
		}
		if s.Game == nil || !s.Game.Completed() || !s.Settled {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Created.Before(sessions[j].Created) })
	return sessions, nil
}

func (m *Memory) Register(ctx context.Context, name string, email string, password string) (*settle.Account, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}
	name, email = strings.ToLower(name), strings.ToLower(strings.TrimSpace(email))

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	for _, a := range m.accounts {
		if a.Name == name {
			return nil, ErrNameTaken
		} else if a.Email == email {
			return nil, ErrEmailTaken
		}
	}
	a := &memoryAccount{
		Account: settle.Account{
			ID:     len(m.accounts) + 1,
			Name:   name,
			Email:  email,
			Rating: settle.DefaultRating,
		},
		passwordHash: hash,
	}
	m.accounts = append(m.accounts, a)
	account := a.Account
	return &account, nil
}

func (m *Memory) Login(ctx context.Context, name string, password string) (*settle.Account, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	m.lock.Lock()
	var found *memoryAccount
	for _, a := range m.accounts {
		if a.Name == name || a.Email == name {
			found = a
			break
		}
	}
	var hash string
	var account settle.Account
	if found != nil {
		hash, account = found.passwordHash, found.Account
	}
	m.lock.Unlock()

	if found == nil || !checkPassword(password, hash) {
		return nil, ErrInvalidLogin
	}
	return &account, nil
}

func (m *Memory) Account(ctx context.Context, id int) (*settle.Account, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if id <= 0 || id > len(m.accounts) {
		return nil, settle.ErrNoAccount
	}
	account := m.accounts[id-1].Account
	return &account, nil
}

func (m *Memory) Payout(ctx context.Context, sessionID string) (*settle.Payout, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	p, ok := m.payouts[sessionID]
	if !ok {
		return nil, settle.ErrNoPayout
	}
	out := *p
	return &out, nil
}

func (m *Memory) Commit(ctx context.Context, p *settle.Payout) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.payouts[p.SessionID]; ok {
		return settle.ErrAlreadySettled
	}
	for c, entry := range p.Entries {
		if entry.Account <= 0 {
			continue
		} else if entry.Account > len(m.accounts) {
			return settle.ErrNoAccount
		}
		a := m.accounts[entry.Account-1]
		a.Rating = entry.Rating
		a.Bones = entry.Bones
		if c == int(p.Winner) {
			a.Wins++
		} else {
			a.Losses++
		}
	}
	stored := *p
	m.payouts[p.SessionID] = &stored
	return nil
}

func (m *Memory) Leaderboard(ctx context.Context, limit int) ([]*settle.Account, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	accounts := make([]*settle.Account, len(m.accounts))
	for i, a := range m.accounts {
		account := a.Account
		accounts[i] = &account
	}
	sort.SliceStable(accounts, func(i, j int) bool { return accounts[i].Rating > accounts[j].Rating })
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

func (m *Memory) DailyStats(ctx context.Context, tz *time.Location) ([]*StatsEntry, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	counts := make(map[string]int)
	for _, p := range m.payouts {
		counts[midnight(p.Settled.In(tz)).Format("2006-01-02")]++
	}
	var stats []*StatsEntry
	for date, games := range counts {
		stats = append(stats, &StatsEntry{Date: date, Games: games})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date < stats[j].Date })
	return stats, nil
}

func decodeSession(buf []byte) (*Session, error) {
	s := &Session{}
	if err := json.Unmarshal(buf, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return s, nil
}
