// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/AccelByte/extend-play-session/pkg/session"
)

func TestMemoryStore_CancelledBeforeCommitDiscards(t *testing.T) {
	s := NewMemoryStore()
	if _, _, err := s.Ensure(context.Background(), "room1", testNow); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.Mutate(ctx, "room1", func(p *session.PlaySession) error {
		session.AddPlayer(p, "u1", "Ada", testNow)
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Mutate() error = %v, expected context.Canceled", err)
	}

	stored, err := s.Read(context.Background(), "room1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if stored.HasPlayer("u1") {
		t.Error("cancelled update should not be stored")
	}
}

func TestMemoryStore_ReadReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	if _, _, err := s.Ensure(context.Background(), "room1", testNow); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	got, _ := s.Read(context.Background(), "room1")
	got.Players["intruder"] = session.Player{Name: "x"}

	again, _ := s.Read(context.Background(), "room1")
	if again.HasPlayer("intruder") {
		t.Error("Read() must not expose the stored record")
	}
}
