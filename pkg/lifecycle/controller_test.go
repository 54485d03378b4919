// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/metrics"
	"github.com/AccelByte/extend-play-session/pkg/policy"
	"github.com/AccelByte/extend-play-session/pkg/session"
	"github.com/AccelByte/extend-play-session/pkg/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func setupController(t *testing.T, players ...string) (*Controller, store.Store, *fakeClock, *metrics.Metrics) {
	t.Helper()

	clock := &fakeClock{now: t0}
	s := store.NewMemoryStore()
	m := metrics.New()
	c := NewController(s, ControllerConfig{
		Policy:  policy.New(policy.Rules{GroupSize: 2, AutoGroupThreshold: 3}),
		Clock:   clock.Now,
		Metrics: m,
	})

	ctx := context.Background()
	if _, _, err := s.Ensure(ctx, "room", clock.Now()); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	for _, p := range players {
		clock.Advance(time.Millisecond)
		if _, err := s.Mutate(ctx, "room", func(ps *session.PlaySession) error {
			session.AddPlayer(ps, p, p, clock.Now())
			return nil
		}); err != nil {
			t.Fatalf("Mutate() error = %v", err)
		}
	}

	return c, s, clock, m
}

func TestController_LockAndCreateGroupsTwice(t *testing.T) {
	c, _, clock, m := setupController(t, "A", "B", "C")
	ctx := context.Background()

	first, locked, err := c.LockAndCreateGroups(ctx, "room", LockOptions{GroupSize: 2, CountdownMs: 60000})
	if err != nil {
		t.Fatalf("LockAndCreateGroups() error = %v", err)
	}
	if !locked {
		t.Fatal("first call should lock")
	}

	clock.Advance(30 * time.Second)
	second, locked, err := c.LockAndCreateGroups(ctx, "room", LockOptions{GroupSize: 1, CountdownMs: 5000})
	if err != nil {
		t.Fatalf("LockAndCreateGroups() error = %v", err)
	}
	if locked {
		t.Error("second call should be a no-op")
	}
	if !reflect.DeepEqual(first.Groups, second.Groups) {
		t.Errorf("groups changed: %v -> %v", first.Groups, second.Groups)
	}
	if *first.CountdownEndsAt != *second.CountdownEndsAt {
		t.Errorf("countdown changed: %d -> %d", *first.CountdownEndsAt, *second.CountdownEndsAt)
	}
	if got := testutil.ToFloat64(m.Groupings.WithLabelValues(metrics.TriggerAdmin)); got != 1 {
		t.Errorf("groupings{admin} = %v, expected 1", got)
	}
}

func TestController_CountdownIsImmutable(t *testing.T) {
	c, s, clock, _ := setupController(t, "A", "B")
	ctx := context.Background()

	callTime := clock.Now()
	if _, _, err := c.LockAndCreateGroups(ctx, "room", LockOptions{GroupSize: 2, CountdownMs: 180000}); err != nil {
		t.Fatalf("LockAndCreateGroups() error = %v", err)
	}

	clock.Advance(time.Minute)
	c.LockAndCreateGroupsIfReady(ctx, "room", 1)

	got, err := s.Read(ctx, "room")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.CountdownEndsAt == nil || *got.CountdownEndsAt != callTime.UnixMilli()+180000 {
		t.Errorf("CountdownEndsAt = %v, expected %d", got.CountdownEndsAt, callTime.UnixMilli()+180000)
	}
}

func TestController_LockAndCreateGroupsErrors(t *testing.T) {
	c, s, _, _ := setupController(t)
	ctx := context.Background()

	if _, _, err := c.LockAndCreateGroups(ctx, "missing", LockOptions{GroupSize: 2}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("missing session error = %v, expected ErrNotFound", err)
	}
	if _, _, err := c.LockAndCreateGroups(ctx, "room", LockOptions{GroupSize: 0}); !errors.Is(err, session.ErrInvalidArgument) {
		t.Errorf("zero group size error = %v, expected ErrInvalidArgument", err)
	}
	if _, _, err := c.LockAndCreateGroups(ctx, "room", LockOptions{GroupSize: 2}); !errors.Is(err, session.ErrInvalidArgument) {
		t.Errorf("empty roster error = %v, expected ErrInvalidArgument", err)
	}

	got, _ := s.Read(ctx, "room")
	if got.Status != session.StatusForming {
		t.Errorf("Status = %v, expected forming after failed locks", got.Status)
	}
}

func TestController_LockAndCreateGroupsIfReady(t *testing.T) {
	c, s, _, m := setupController(t, "A", "B")
	ctx := context.Background()

	if c.LockAndCreateGroupsIfReady(ctx, "room", 3) {
		t.Error("two players should not reach threshold 3")
	}
	if c.LockAndCreateGroupsIfReady(ctx, "missing", 3) {
		t.Error("missing session should be a silent no-op")
	}

	if _, err := s.Mutate(ctx, "room", func(p *session.PlaySession) error {
		session.AddPlayer(p, "C", "C", t0.Add(time.Second))
		return nil
	}); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	if !c.LockAndCreateGroupsIfReady(ctx, "room", 3) {
		t.Fatal("three players should lock")
	}
	if c.LockAndCreateGroupsIfReady(ctx, "room", 3) {
		t.Error("second call should be a no-op")
	}

	got, _ := s.Read(ctx, "room")
	expected := map[string]session.Group{
		"g1": {MemberUserIDs: []string{"A", "B"}},
		"g2": {MemberUserIDs: []string{"C"}},
	}
	if !reflect.DeepEqual(got.Groups, expected) {
		t.Errorf("Groups = %v, expected %v", got.Groups, expected)
	}
	if got.CountdownEndsAt != nil {
		t.Error("ready lock must not start a countdown")
	}
	if got.GroupSize != 2 {
		t.Errorf("GroupSize = %d, expected policy default 2", got.GroupSize)
	}
	if n := testutil.ToFloat64(m.Groupings.WithLabelValues(metrics.TriggerReady)); n != 1 {
		t.Errorf("groupings{ready} = %v, expected 1", n)
	}
}

func TestController_ReconcileUsesPolicyThreshold(t *testing.T) {
	c, _, _, m := setupController(t, "A", "B", "C")
	if !c.Reconcile(context.Background(), "room") {
		t.Fatal("Reconcile() should lock at the policy threshold")
	}
	if n := testutil.ToFloat64(m.Groupings.WithLabelValues(metrics.TriggerReconcile)); n != 1 {
		t.Errorf("groupings{reconcile} = %v, expected 1", n)
	}
}

func TestController_Start(t *testing.T) {
	c, _, _, _ := setupController(t, "A", "B")
	ctx := context.Background()

	if _, _, err := c.Start(ctx, "room"); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("Start() on forming error = %v, expected ErrInvalidTransition", err)
	}

	if _, _, err := c.LockAndCreateGroups(ctx, "room", LockOptions{GroupSize: 2}); err != nil {
		t.Fatalf("LockAndCreateGroups() error = %v", err)
	}

	s, started, err := c.Start(ctx, "room")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !started || s.Status != session.StatusRunning {
		t.Errorf("Start() = %v, %v, expected running and started", s.Status, started)
	}

	_, started, err = c.Start(ctx, "room")
	if err != nil {
		t.Fatalf("repeated Start() error = %v", err)
	}
	if started {
		t.Error("repeated Start() should report already running")
	}

	if _, finished, err := c.Finish(ctx, "room"); err != nil || !finished {
		t.Fatalf("Finish() = %v, %v", finished, err)
	}
	if _, _, err := c.Start(ctx, "room"); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("Start() on done error = %v, expected ErrInvalidTransition", err)
	}
	if c.LockAndCreateGroupsIfReady(ctx, "room", 1) {
		t.Error("a done session must never lock")
	}
}

func TestController_StartExactlyOnceConcurrently(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := store.NewRedisStore(client, store.RedisStoreConfig{MaxRetries: 100})
	c := NewController(s, ControllerConfig{})
	ctx := context.Background()

	if _, _, err := s.Ensure(ctx, "room", t0); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if _, err := s.Mutate(ctx, "room", func(p *session.PlaySession) error {
		session.AddPlayer(p, "A", "A", t0)
		return nil
	}); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	if _, _, err := c.LockAndCreateGroups(ctx, "room", LockOptions{GroupSize: 2}); err != nil {
		t.Fatalf("LockAndCreateGroups() error = %v", err)
	}

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := c.Start(ctx, "room")
			if err != nil {
				t.Errorf("Start() error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if started != 1 {
		t.Errorf("started = %d, expected exactly 1", started)
	}
}
