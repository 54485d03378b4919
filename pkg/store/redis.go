// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/metrics"
	"github.com/AccelByte/extend-play-session/pkg/session"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// KeyPrefix is the prefix for all session record keys
	KeyPrefix = "play_session:state:"
	// FormingIndexKey is the set of ids of sessions still forming
	FormingIndexKey = "play_session:forming"
	// ChangesChannel is the pub/sub channel that carries committed session ids
	ChangesChannel = "play_session:updates"
	// DefaultMaxRetries bounds the optimistic retry loop
	DefaultMaxRetries = 8

	backendRedis = "redis"
)

type RedisStoreConfig struct {
	KeyPrefix       string
	FormingIndexKey string
	ChangesChannel  string
	// TTL is refreshed on every write. Zero keeps records forever.
	TTL        time.Duration
	MaxRetries int
	Metrics    *metrics.Metrics
}

// RedisStore keeps each session as a JSON document under its own key.
// Updates use WATCH/MULTI so concurrent writers on one id retry instead of
// overwriting each other; different ids never contend.
type RedisStore struct {
	client redis.UniversalClient
	cfg    RedisStoreConfig
}

func NewRedisStore(client redis.UniversalClient, cfg RedisStoreConfig) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = KeyPrefix
	}
	if cfg.FormingIndexKey == "" {
		cfg.FormingIndexKey = FormingIndexKey
	}
	if cfg.ChangesChannel == "" {
		cfg.ChangesChannel = ChangesChannel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	return &RedisStore{
		client: client,
		cfg:    cfg,
	}
}

// makeKey creates the Redis key for a session
func (r *RedisStore) makeKey(id string) string {
	return fmt.Sprintf("%s%s", r.cfg.KeyPrefix, id)
}

// Ensure creates the session if the key is absent. Losing a creation race
// aborts the transaction, and the retry reads the winner's record.
func (r *RedisStore) Ensure(ctx context.Context, id string, now time.Time) (*session.PlaySession, bool, error) {
	key := r.makeKey(id)

	var (
		result  *session.PlaySession
		created bool
	)

	txf := func(tx *redis.Tx) error {
		created = false

		existing, err := r.get(ctx, tx, id)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return err
		}

		fresh := session.New(id, now)
		if err := r.commit(ctx, tx, fresh); err != nil {
			return err
		}

		result = fresh
		created = true
		return nil
	}

	if err := r.withRetry(ctx, id, func() error { return r.client.Watch(ctx, txf, key) }); err != nil {
		logrus.Errorf("failed to ensure session %s: %v", id, err)
		return nil, false, fmt.Errorf("failed to ensure session: %w", err)
	}

	if created {
		logrus.Infof("created session %s", id)
	}
	return result, created, nil
}

// Read retrieves a session from Redis
func (r *RedisStore) Read(ctx context.Context, id string) (*session.PlaySession, error) {
	return r.get(ctx, r.client, id)
}

// Mutate runs fn against the current record inside a WATCH on its key.
func (r *RedisStore) Mutate(ctx context.Context, id string, fn MutateFunc) (*session.PlaySession, error) {
	key := r.makeKey(id)

	var result *session.PlaySession

	txf := func(tx *redis.Tx) error {
		current, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			if errors.Is(err, ErrNoChange) {
				result = current
				return nil
			}
			return err
		}

		if err := session.Validate(next); err != nil {
			return fmt.Errorf("refusing to store session %s: %w", id, err)
		}

		if err := r.commit(ctx, tx, next); err != nil {
			return err
		}

		result = next
		return nil
	}

	err := r.withRetry(ctx, id, func() error { return r.client.Watch(ctx, txf, key) })
	if errors.Is(err, session.ErrNotFound) {
		// the record expired, drop it from the forming index too
		if remErr := r.client.SRem(ctx, r.cfg.FormingIndexKey, id).Err(); remErr != nil {
			logrus.Warnf("failed to prune session %s from forming index: %v", id, remErr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ListForming returns the ids in the forming index, sorted.
func (r *RedisStore) ListForming(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.cfg.FormingIndexKey).Result()
	if err != nil {
		logrus.Errorf("failed to list forming sessions: %v", err)
		return nil, fmt.Errorf("failed to list forming sessions: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

// Changes subscribes to the change channel. The subscription is confirmed
// before returning, so no write committed afterwards is missed.
func (r *RedisStore) Changes(ctx context.Context) (<-chan string, error) {
	sub := r.client.Subscribe(ctx, r.cfg.ChangesChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.cfg.ChangesChannel, err)
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Ping performs a Redis round trip.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) get(ctx context.Context, c redis.Cmdable, id string) (*session.PlaySession, error) {
	data, err := c.Get(ctx, r.makeKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	if err != nil {
		logrus.Errorf("failed to get session %s: %v", id, err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s session.PlaySession
	if err := json.Unmarshal(data, &s); err != nil {
		logrus.Errorf("failed to unmarshal session %s: %v", id, err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.Players == nil {
		s.Players = map[string]session.Player{}
	}

	return &s, nil
}

// commit writes the record, keeps the forming index in step with its status
// and announces the change, all in one MULTI/EXEC.
func (r *RedisStore) commit(ctx context.Context, tx *redis.Tx, s *session.PlaySession) error {
	data, err := json.Marshal(s)
	if err != nil {
		logrus.Errorf("failed to marshal session %s: %v", s.ID, err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.makeKey(s.ID), data, r.cfg.TTL)
		if s.Status == session.StatusForming {
			pipe.SAdd(ctx, r.cfg.FormingIndexKey, s.ID)
		} else {
			pipe.SRem(ctx, r.cfg.FormingIndexKey, s.ID)
		}
		pipe.Publish(ctx, r.cfg.ChangesChannel, s.ID)
		return nil
	})
	if err != nil {
		return err
	}

	logrus.Infof("stored session %s (status=%s players=%d groups=%d)",
		s.ID, s.Status, len(s.Players), len(s.Groups))
	return nil
}

// withRetry repeats op while the WATCHed key keeps changing underneath it.
// Any other error stops the loop immediately.
func (r *RedisStore) withRetry(ctx context.Context, id string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxRetries)), ctx)

	err := backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			r.cfg.Metrics.Conflict(backendRedis)
			logrus.Debugf("write collision on session %s, retrying", id)
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	if errors.Is(err, redis.TxFailedErr) {
		logrus.Warnf("giving up on session %s after %d retries", id, r.cfg.MaxRetries)
		return fmt.Errorf("%w: session %s", session.ErrConflict, id)
	}
	return err
}
