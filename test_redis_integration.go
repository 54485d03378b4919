// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

//go:build integration
// +build integration

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-play-session/pkg/common"
	"github.com/AccelByte/extend-play-session/pkg/joincode"
	"github.com/AccelByte/extend-play-session/pkg/policy"
	"github.com/AccelByte/extend-play-session/pkg/service"
	"github.com/AccelByte/extend-play-session/pkg/session"
	"github.com/AccelByte/extend-play-session/pkg/store"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// This is a manual integration test for the Redis session store.
// Run this with: go run -tags integration test_redis_integration.go
// Requires: Redis running on REDIS_HOST:REDIS_PORT (default localhost:6379)

func main() {
	logrus.SetLevel(logrus.DebugLevel)
	logrus.Infof("Starting Redis integration test...")

	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr:     common.GetEnv("REDIS_HOST", "localhost") + ":" + common.GetEnv("REDIS_PORT", "6379"),
		Password: common.GetEnv("REDIS_PASSWORD", ""),
		DB:       common.GetEnvInt("REDIS_DB", 0),
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}

	st := store.NewRedisStore(client, store.RedisStoreConfig{TTL: 10 * time.Minute})
	svc, err := service.New(st, service.Config{
		Policy:     policy.New(policy.Rules{GroupSize: 2, AutoGroupThreshold: 4}),
		Codes:      joincode.NewStore(client, joincode.StoreConfig{TTL: 10 * time.Minute}),
		LockOnRead: true,
	})
	if err != nil {
		logrus.Fatalf("Failed to create service: %v", err)
	}

	// Test 1: Issue a join code and create its session
	logrus.Infof("\n=== Test 1: Issue join code and ensure session ===")
	code, err := svc.IssueJoinCode(ctx)
	if err != nil {
		logrus.Fatalf("IssueJoinCode failed: %v", err)
	}
	sessionID, err := svc.EnsureSession(ctx, code.Value)
	if err != nil {
		logrus.Fatalf("EnsureSession failed: %v", err)
	}
	logrus.Infof("✓ Session %s ready (code expires %s)", sessionID, code.ExpiresAt.Format(time.RFC3339))

	// Test 2: Concurrent joins must all land on the roster
	logrus.Infof("\n=== Test 2: Concurrent joins ===")
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			if err := svc.JoinSession(ctx, sessionID, user, ""); err != nil {
				logrus.Errorf("JoinSession(%s) failed: %v", user, err)
			}
		}(i)
	}
	wg.Wait()

	state, err := svc.ReadState(ctx, sessionID, "")
	if err != nil {
		logrus.Fatalf("ReadState failed: %v", err)
	}
	if len(state.Players) != 3 || state.Status != session.StatusForming {
		logrus.Fatalf("Expected 3 forming players, got %d (%s)", len(state.Players), state.Status)
	}
	logrus.Infof("✓ Roster has %d players, status %s", len(state.Players), state.Status)

	// Test 3: The fourth join crosses the threshold and groups the session
	logrus.Infof("\n=== Test 3: Auto grouping on threshold ===")
	if err := svc.JoinSession(ctx, sessionID, "user-3", "Dee"); err != nil {
		logrus.Fatalf("JoinSession failed: %v", err)
	}
	state, err = svc.ReadState(ctx, sessionID, "user-3")
	if err != nil {
		logrus.Fatalf("ReadState failed: %v", err)
	}
	if state.Status != session.StatusLocked || len(state.Groups) != 2 || state.MyGroupID == nil {
		logrus.Fatalf("Expected locked session with 2 groups, got %s with %d groups", state.Status, len(state.Groups))
	}
	logrus.Infof("✓ Locked into %d groups, user-3 is in %s", len(state.Groups), *state.MyGroupID)

	// Test 4: Lifecycle transitions
	logrus.Infof("\n=== Test 4: Start and finish ===")
	if err := svc.AdminStart(ctx, sessionID); err != nil {
		logrus.Fatalf("AdminStart failed: %v", err)
	}
	if err := svc.Finish(ctx, sessionID); err != nil {
		logrus.Fatalf("Finish failed: %v", err)
	}
	state, err = svc.ReadState(ctx, sessionID, "")
	if err != nil {
		logrus.Fatalf("ReadState failed: %v", err)
	}
	if state.Status != session.StatusDone {
		logrus.Fatalf("Expected done, got %s", state.Status)
	}
	logrus.Infof("✓ Session finished")

	// Cleanup
	logrus.Infof("\n=== Cleanup ===")
	if err := client.Del(ctx, store.KeyPrefix+sessionID, joincode.KeyPrefix+code.Value).Err(); err != nil {
		logrus.Warnf("Cleanup failed: %v", err)
	}
	logrus.Infof("✓ Cleaned up test keys")

	logrus.Infof("\n=== All tests passed! ===")
}
