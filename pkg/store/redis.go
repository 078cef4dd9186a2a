package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const activeSessionsKey = "sessions:active"

// Redis is a Store backed by Redis. Updates use WATCH and MULTI so that a write based
// on a stale version is rejected.
type Redis struct {
	client *redis.Client
}

var _ Store = &Redis{}

// NewRedis connects to the Redis server described by opt.
func NewRedis(ctx context.Context, opt *redis.Options) (*Redis, error) {
	client := redis.NewClient(opt)

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisClient(client), nil
}

// NewRedisClient returns a Store using an existing client.
func NewRedisClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func sessionKey(id string) string {
	return "session:" + id
}

func (r *Redis) Create(ctx context.Context, s *Session) error {
	prepareCreate(s)
	buf, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	ok, err := r.client.SetNX(ctx, sessionKey(s.ID), buf, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	} else if !ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}

	err = r.client.SAdd(ctx, activeSessionsKey, s.ID).Err()
	if err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (*Session, error) {
	buf, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return decodeSession(buf)
}

func (r *Redis) Update(ctx context.Context, s *Session) error {
	key := sessionKey(s.ID)

	next := *s
	next.Version++
	next.Updated = time.Now()
	buf, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	update := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		stored, err := decodeSession(current)
		if err != nil {
			return err
		} else if stored.Version != s.Version {
			return ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, 0)
			if completed(&next) && next.Settled {
				pipe.SRem(ctx, activeSessionsKey, s.ID)
			}
			return nil
		})
		return err
	}

	err = r.client.Watch(ctx, update, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	} else if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	} else if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	s.Version, s.Updated = next.Version, next.Updated
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	deleted, err := r.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	err = r.client.SRem(ctx, activeSessionsKey, id).Err()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	} else if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) Active(ctx context.Context) ([]*Session, error) {
	ids, err := r.client.SMembers(ctx, activeSessionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	} else if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []*Session
	for _, v := range values {
		buf, ok := v.(string)
		if !ok {
			continue // Deleted since listing.
		}
		s, err := decodeSession([]byte(buf))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Created.Before(sessions[j].Created) })
	return sessions, nil
}
