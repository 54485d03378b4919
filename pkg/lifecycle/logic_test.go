// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package lifecycle

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/session"
)

var t0 = time.UnixMilli(1_700_000_000_000)

func formingWith(users ...string) *session.PlaySession {
	s := session.New("room", t0)
	for i, u := range users {
		session.AddPlayer(s, u, u, t0.Add(time.Duration(i+1)*time.Millisecond))
	}
	return s
}

func TestLock(t *testing.T) {
	s := formingWith("A", "B", "C", "D")

	locked, err := Lock(s, LockOptions{GroupSize: 2, Fixed: map[string]int{"A": 0, "B": 1}}, t0.Add(time.Second))
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if !locked {
		t.Fatal("Lock() = false, expected true")
	}

	if s.Status != session.StatusLocked {
		t.Errorf("Status = %v, expected locked", s.Status)
	}
	if s.GroupSize != 2 {
		t.Errorf("GroupSize = %d, expected 2", s.GroupSize)
	}
	if s.CountdownEndsAt != nil {
		t.Errorf("CountdownEndsAt = %v, expected unset", *s.CountdownEndsAt)
	}
	expected := map[string]session.Group{
		"g0": {MemberUserIDs: []string{"A", "C"}},
		"g1": {MemberUserIDs: []string{"B", "D"}},
	}
	if !reflect.DeepEqual(s.Groups, expected) {
		t.Errorf("Groups = %v, expected %v", s.Groups, expected)
	}
	if err := session.Validate(s); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLock_Countdown(t *testing.T) {
	s := formingWith("A", "B")
	now := t0.Add(time.Minute)

	if _, err := Lock(s, LockOptions{GroupSize: 2, CountdownMs: 180000}, now); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if s.CountdownEndsAt == nil || *s.CountdownEndsAt != now.UnixMilli()+180000 {
		t.Errorf("CountdownEndsAt = %v, expected %d", s.CountdownEndsAt, now.UnixMilli()+180000)
	}
}

func TestLock_NotForming(t *testing.T) {
	for _, status := range []session.Status{session.StatusLocked, session.StatusRunning, session.StatusDone} {
		t.Run(string(status), func(t *testing.T) {
			s := formingWith("A", "B")
			s.Status = status
			before := s.Clone()

			locked, err := Lock(s, LockOptions{GroupSize: 1, CountdownMs: 1000}, t0.Add(time.Hour))
			if err != nil {
				t.Fatalf("Lock() error = %v", err)
			}
			if locked {
				t.Error("Lock() = true, expected no-op")
			}
			if !reflect.DeepEqual(s, before) {
				t.Errorf("session changed: %+v, expected %+v", s, before)
			}
		})
	}
}

func TestLock_InvalidArgument(t *testing.T) {
	tests := []struct {
		name string
		s    *session.PlaySession
		opts LockOptions
	}{
		{"zero group size", formingWith("A"), LockOptions{GroupSize: 0}},
		{"negative countdown", formingWith("A"), LockOptions{GroupSize: 2, CountdownMs: -5}},
		{"negative fixed index", formingWith("A"), LockOptions{GroupSize: 2, Fixed: map[string]int{"A": -1}}},
		{"empty roster", formingWith(), LockOptions{GroupSize: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lock(tt.s, tt.opts, t0)
			if !errors.Is(err, session.ErrInvalidArgument) {
				t.Errorf("Lock() error = %v, expected ErrInvalidArgument", err)
			}
			if tt.s.Status != session.StatusForming || len(tt.s.Groups) != 0 {
				t.Error("failed Lock() must leave the session forming without groups")
			}
		})
	}
}

func TestReadyToLock(t *testing.T) {
	tests := []struct {
		name      string
		players   int
		status    session.Status
		threshold int
		expected  bool
	}{
		{"below threshold", 2, session.StatusForming, 3, false},
		{"at threshold", 3, session.StatusForming, 3, true},
		{"above threshold", 5, session.StatusForming, 3, true},
		{"already locked", 5, session.StatusLocked, 3, false},
		{"done", 5, session.StatusDone, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := make([]string, tt.players)
			for i := range users {
				users[i] = string(rune('A' + i))
			}
			s := formingWith(users...)
			s.Status = tt.status
			if got := ReadyToLock(s, tt.threshold); got != tt.expected {
				t.Errorf("ReadyToLock() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestStartAndFinish(t *testing.T) {
	tests := []struct {
		name      string
		step      func(*session.PlaySession, time.Time) (bool, error)
		from      session.Status
		moved     bool
		to        session.Status
		wantError bool
	}{
		{"start forming", Start, session.StatusForming, false, session.StatusForming, true},
		{"start locked", Start, session.StatusLocked, true, session.StatusRunning, false},
		{"start running", Start, session.StatusRunning, false, session.StatusRunning, false},
		{"start done", Start, session.StatusDone, false, session.StatusDone, true},
		{"finish forming", Finish, session.StatusForming, false, session.StatusForming, true},
		{"finish locked", Finish, session.StatusLocked, false, session.StatusLocked, true},
		{"finish running", Finish, session.StatusRunning, true, session.StatusDone, false},
		{"finish done", Finish, session.StatusDone, false, session.StatusDone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := formingWith("A")
			s.Status = tt.from

			moved, err := tt.step(s, t0.Add(time.Second))
			if tt.wantError != (err != nil) {
				t.Fatalf("error = %v, wantError %v", err, tt.wantError)
			}
			if err != nil && !errors.Is(err, session.ErrInvalidTransition) {
				t.Errorf("error = %v, expected ErrInvalidTransition", err)
			}
			if moved != tt.moved {
				t.Errorf("moved = %v, expected %v", moved, tt.moved)
			}
			if s.Status != tt.to {
				t.Errorf("Status = %v, expected %v", s.Status, tt.to)
			}
		})
	}
}
