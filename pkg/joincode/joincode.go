// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package joincode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// Alphabet leaves out characters that are easy to misread (I, O, 0, 1).
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// Length is the number of characters in a code
	Length = 6
	// KeyPrefix is the prefix for issued code keys
	KeyPrefix = "play_session:join_code:"
	// DefaultTTL is how long an issued code stays valid
	DefaultTTL = 2 * time.Hour

	maxIssueAttempts = 10
)

// ErrExhausted is returned when no unused code could be found.
var ErrExhausted = errors.New("could not allocate an unused join code")

// Code is an issued join code.
type Code struct {
	Value     string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Generate returns a random code drawn from Alphabet.
func Generate() (string, error) {
	code := make([]byte, Length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(Alphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate join code: %w", err)
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}

// Store issues and validates expiring join codes in Redis.
type Store struct {
	client   redis.UniversalClient
	ttl      time.Duration
	clock    func() time.Time
	generate func() (string, error)
}

type StoreConfig struct {
	TTL   time.Duration
	Clock func() time.Time
}

func NewStore(client redis.UniversalClient, cfg StoreConfig) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Store{
		client:   client,
		ttl:      cfg.TTL,
		clock:    cfg.Clock,
		generate: Generate,
	}
}

func makeKey(code string) string {
	return KeyPrefix + code
}

// Issue allocates a fresh code. Collisions with live codes are retried.
func (s *Store) Issue(ctx context.Context) (*Code, error) {
	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		value, err := s.generate()
		if err != nil {
			return nil, err
		}

		issuedAt := s.clock()
		ok, err := s.client.SetNX(ctx, makeKey(value), issuedAt.UnixMilli(), s.ttl).Result()
		if err != nil {
			logrus.Errorf("failed to store join code: %v", err)
			return nil, fmt.Errorf("failed to store join code: %w", err)
		}
		if ok {
			logrus.Infof("issued join code %s valid for %v", value, s.ttl)
			return &Code{Value: value, ExpiresAt: issuedAt.Add(s.ttl)}, nil
		}

		logrus.Debugf("join code collision on %s (attempt %d/%d)", value, attempt, maxIssueAttempts)
	}

	return nil, ErrExhausted
}

// Valid reports whether code was issued and has not expired.
func (s *Store) Valid(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, makeKey(code)).Result()
	if err != nil {
		logrus.Errorf("failed to check join code %s: %v", code, err)
		return false, fmt.Errorf("failed to check join code: %w", err)
	}
	return n == 1, nil
}

// Revoke invalidates a code before it expires.
func (s *Store) Revoke(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, makeKey(code)).Err(); err != nil {
		logrus.Errorf("failed to revoke join code %s: %v", code, err)
		return fmt.Errorf("failed to revoke join code: %w", err)
	}

	logrus.Infof("revoked join code %s", code)
	return nil
}
