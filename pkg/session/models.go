// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"time"
)

// Status is the lifecycle position of a play session.
type Status string

const (
	StatusForming Status = "forming"
	StatusLocked  Status = "locked"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
)

var statusRank = map[Status]int{
	StatusForming: 0,
	StatusLocked:  1,
	StatusRunning: 2,
	StatusDone:    3,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Next returns the only status s may move to, or false when s is terminal.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusForming:
		return StatusLocked, true
	case StatusLocked:
		return StatusRunning, true
	case StatusRunning:
		return StatusDone, true
	}
	return "", false
}

// Before reports whether s comes strictly earlier than other in the lifecycle.
func (s Status) Before(other Status) bool {
	return statusRank[s] < statusRank[other]
}

// Player is a roster entry.
type Player struct {
	Name     string `json:"name"`
	JoinedAt int64  `json:"joinedAt"`
}

// Group holds the members of one team, in placement order.
type Group struct {
	MemberUserIDs []string `json:"memberUserIds"`
}

// PlaySession is the persisted record of one session.
// All timestamps are epoch milliseconds.
type PlaySession struct {
	ID              string            `json:"id"`
	Status          Status            `json:"status"`
	CreatedAt       int64             `json:"createdAt"`
	UpdatedAt       int64             `json:"updatedAt"`
	CountdownEndsAt *int64            `json:"countdownEndsAt,omitempty"`
	Players         map[string]Player `json:"players"`
	Groups          map[string]Group  `json:"groups,omitempty"`
	GroupSize       int               `json:"groupSize,omitempty"`
}

// Clock returns the current time. Components take one so tests can pin time.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time {
	return time.Now()
}
