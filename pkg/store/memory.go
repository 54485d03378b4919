// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/session"

	"github.com/sirupsen/logrus"
)

// MemoryStore keeps sessions in process memory behind a mutex per id.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*session.PlaySession
	locks   map[string]*sync.Mutex

	feed *feed
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*session.PlaySession),
		locks:   make(map[string]*sync.Mutex),
		feed:    newFeed(),
	}
}

// lockFor returns the mutex guarding id, creating it on first use.
func (m *MemoryStore) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *MemoryStore) load(id string) (*session.PlaySession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.records[id]
	return s, ok
}

func (m *MemoryStore) save(s *session.PlaySession) {
	m.mu.Lock()
	m.records[s.ID] = s.Clone()
	m.mu.Unlock()

	m.feed.publish(s.ID)
}

func (m *MemoryStore) Ensure(ctx context.Context, id string, now time.Time) (*session.PlaySession, bool, error) {
	l := m.lockFor(id)
	l.Lock()
	defer l.Unlock()

	if existing, ok := m.load(id); ok {
		return existing.Clone(), false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	fresh := session.New(id, now)
	m.save(fresh)
	logrus.Infof("created session %s", id)
	return fresh, true, nil
}

func (m *MemoryStore) Read(ctx context.Context, id string) (*session.PlaySession, error) {
	s, ok := m.load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	return s.Clone(), nil
}

// Mutate holds the id's mutex for one read-modify-write. A context cancelled
// before the write discards the change.
func (m *MemoryStore) Mutate(ctx context.Context, id string, fn MutateFunc) (*session.PlaySession, error) {
	l := m.lockFor(id)
	l.Lock()
	defer l.Unlock()

	current, ok := m.load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		if errors.Is(err, ErrNoChange) {
			return current.Clone(), nil
		}
		return nil, err
	}

	if err := session.Validate(next); err != nil {
		return nil, fmt.Errorf("refusing to store session %s: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.save(next)
	logrus.Infof("stored session %s (status=%s players=%d groups=%d)",
		id, next.Status, len(next.Players), len(next.Groups))
	return next, nil
}

func (m *MemoryStore) ListForming(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, s := range m.records {
		if s.Status == session.StatusForming {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) Changes(ctx context.Context) (<-chan string, error) {
	return m.feed.subscribe(ctx), nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// feed fans committed ids out to subscribers. A full subscriber buffer drops
// the id; readers converge on the next change or their next read.
type feed struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

func newFeed() *feed {
	return &feed{subs: make(map[chan string]struct{})}
}

func (f *feed) subscribe(ctx context.Context) <-chan string {
	ch := make(chan string, 64)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		close(ch)
		f.mu.Unlock()
	}()

	return ch
}

func (f *feed) publish(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs {
		select {
		case ch <- id:
		default:
			logrus.Warnf("change feed subscriber is full, dropping update for %s", id)
		}
	}
}
