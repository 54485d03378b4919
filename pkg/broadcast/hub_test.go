// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package broadcast

import (
	"context"
	"testing"
	"time"
)

func waitSignal(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.C:
	case <-time.After(2 * time.Second):
		t.Fatalf("subscriber %s: timed out waiting for signal", sub.ID)
	}
}

func expectNoSignal(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.C:
		t.Fatalf("subscriber %s: unexpected signal", sub.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_NotifyOnlyMatchingSession(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("room-a")
	b := h.Subscribe("room-b")
	defer a.Close()
	defer b.Close()

	if a.ID == b.ID {
		t.Fatal("subscription ids must be unique")
	}

	h.Notify("room-a")
	waitSignal(t, a)
	expectNoSignal(t, b)
}

func TestHub_SignalsCoalesce(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("room")
	defer sub.Close()

	for i := 0; i < 10; i++ {
		h.Notify("room")
	}

	waitSignal(t, sub)
	expectNoSignal(t, sub)
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("room")
	other := h.Subscribe("room")
	defer other.Close()

	if n := h.Count("room"); n != 2 {
		t.Fatalf("Count() = %d, expected 2", n)
	}

	sub.Close()
	sub.Close()

	if n := h.Count("room"); n != 1 {
		t.Errorf("Count() = %d, expected 1", n)
	}
	if _, ok := <-sub.C; ok {
		t.Error("closed subscription channel should be closed")
	}

	h.Notify("room")
	waitSignal(t, other)
}

func TestHub_Run(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("room")
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan string)
	done := make(chan struct{})
	go func() {
		h.Run(ctx, changes)
		close(done)
	}()

	changes <- "room"
	waitSignal(t, sub)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
