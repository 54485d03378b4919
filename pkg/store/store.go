// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/session"
)

// ErrNoChange may be returned by a MutateFunc to finish without writing.
// Mutate then returns the current record and a nil error.
var ErrNoChange = errors.New("no change")

// MutateFunc edits a private copy of the session. It may run more than once
// when concurrent writers collide, so it must not keep state between calls.
type MutateFunc func(s *session.PlaySession) error

// Store keeps one record per play session and serializes updates per id.
//
// ============================================================
// DEVELOPER: Store implementations
// ============================================================
// - RedisStore: optimistic WATCH/MULTI updates, shared by every replica
// - MemoryStore: keyed mutex, single process only (local dev, tests)
//
// Both publish the session id on every committed write so that
// subscribers (websocket hub) can refresh their view.
// ============================================================
type Store interface {
	// Ensure creates a forming session unless one exists.
	// created is true only for the caller whose record was stored.
	Ensure(ctx context.Context, id string, now time.Time) (s *session.PlaySession, created bool, err error)

	// Read returns the committed record or session.ErrNotFound.
	Read(ctx context.Context, id string) (*session.PlaySession, error)

	// Mutate applies fn as a read-modify-write and returns the committed record.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*session.PlaySession, error)

	// ListForming returns the ids of sessions that are still forming.
	ListForming(ctx context.Context) ([]string, error)

	// Changes streams the ids of sessions as their writes commit, until ctx ends.
	Changes(ctx context.Context) (<-chan string, error)

	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error
}
