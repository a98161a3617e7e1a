// Package redisstore keeps user snapshots in Redis for use as the
// SerializeUser and DeserializeUser callbacks of a sessionless middleware.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionless"
)

// ErrRedisUnavailable wraps every Redis transport error.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrEmptyID is returned when the id function yields "".
var ErrEmptyID = errors.New("user id is empty")

const defaultPrefix = "sl"

// Config configures a [Store].
type Config[U any] struct {
	// Prefix namespaces keys as "<prefix>:u:<id>". Defaults to "sl".
	Prefix string
	// TTL expires snapshots. Zero keeps them until deleted.
	TTL time.Duration
	// Sliding refreshes TTL on every successful load.
	Sliding bool
	// ID returns the key of a user. Required.
	ID func(U) string
}

// Store persists JSON snapshots of U in Redis.
type Store[U any] struct {
	redis   redis.UniversalClient
	prefix  string
	ttl     time.Duration
	sliding bool
	id      func(U) string
}

// New returns a Store backed by client.
func New[U any](client redis.UniversalClient, cfg Config[U]) (*Store[U], error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.ID == nil {
		return nil, errors.New("id function is required")
	}
	if cfg.TTL < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store[U]{
		redis:   client,
		prefix:  prefix,
		ttl:     cfg.TTL,
		sliding: cfg.Sliding && cfg.TTL > 0,
		id:      cfg.ID,
	}, nil
}

func (s *Store[U]) key(id string) string {
	return s.prefix + ":u:" + id
}

// Save writes the snapshot of user.
func (s *Store[U]) Save(ctx context.Context, user U) (string, error) {
	id := s.id(user)
	if id == "" {
		return "", ErrEmptyID
	}
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return id, nil
}

// Get loads the snapshot for id. A missing key returns an error wrapping
// [sessionless.ErrUserNotFound].
func (s *Store[U]) Get(ctx context.Context, id string) (U, error) {
	var zero U
	if id == "" {
		return zero, sessionless.ErrUserNotFound
	}

	var (
		data []byte
		err  error
	)
	if s.sliding {
		data, err = s.redis.GetEx(ctx, s.key(id), s.ttl).Bytes()
	} else {
		data, err = s.redis.Get(ctx, s.key(id)).Bytes()
	}
	if errors.Is(err, redis.Nil) {
		return zero, fmt.Errorf("%w: %s", sessionless.ErrUserNotFound, id)
	}
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}

	var user U
	if err := json.Unmarshal(data, &user); err != nil {
		return zero, fmt.Errorf("decode user %s: %w", id, err)
	}
	return user, nil
}

// Delete removes the snapshot for id. Deleting a missing id is not an error.
func (s *Store[U]) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// Serialize matches sessionless.SerializeUserFunc.
func (s *Store[U]) Serialize(ctx context.Context, user U) (string, error) {
	return s.Save(ctx, user)
}

// Deserialize matches sessionless.DeserializeUserFunc.
func (s *Store[U]) Deserialize(r *http.Request, subject string) (U, error) {
	return s.Get(r.Context(), subject)
}
