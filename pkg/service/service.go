// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/AccelByte/extend-play-session/pkg/coordinator"
	"github.com/AccelByte/extend-play-session/pkg/joincode"
	"github.com/AccelByte/extend-play-session/pkg/lifecycle"
	"github.com/AccelByte/extend-play-session/pkg/metrics"
	"github.com/AccelByte/extend-play-session/pkg/policy"
	"github.com/AccelByte/extend-play-session/pkg/projector"
	"github.com/AccelByte/extend-play-session/pkg/session"
	"github.com/AccelByte/extend-play-session/pkg/store"

	"github.com/sirupsen/logrus"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// CodeIssuer issues and checks join codes. Implemented by joincode.Store.
type CodeIssuer interface {
	Issue(ctx context.Context) (*joincode.Code, error)
	Valid(ctx context.Context, code string) (bool, error)
	Revoke(ctx context.Context, code string) error
}

// Service is the entry point request handlers call into.
//
// ============================================================
// DEVELOPER: Operation map
// ============================================================
// EnsureSession      -> store.Ensure
// JoinSession        -> coordinator.Join (may auto-group)
// AdminCreateGroups  -> lifecycle.LockAndCreateGroups
// AdminStart, Finish -> lifecycle.Start / lifecycle.Finish
// ReadState          -> projector.Snapshot
// LockIfReady        -> lifecycle.LockAndCreateGroupsIfReady
// Poll               -> LockIfReady (when enabled) + ReadState
// ============================================================
type Service struct {
	store       store.Store
	coordinator *coordinator.Coordinator
	controller  *lifecycle.Controller
	projector   *projector.Projector
	health      *store.HealthChecker
	policy      *policy.Policy
	codes       CodeIssuer
	clock       session.Clock
	metrics     *metrics.Metrics

	lockOnRead        bool
	requireIssuedCode bool
}

type Config struct {
	Policy  *policy.Policy
	Clock   session.Clock
	Metrics *metrics.Metrics
	// Codes is optional; without it join codes are generated but not tracked.
	Codes CodeIssuer

	// LockOnRead makes Poll try LockIfReady before reading.
	LockOnRead bool
	// RequireIssuedCode rejects EnsureSession for codes Codes never issued.
	RequireIssuedCode bool
}

func New(s store.Store, cfg Config) (*Service, error) {
	if cfg.Clock == nil {
		cfg.Clock = session.SystemClock
	}
	if cfg.Policy == nil {
		cfg.Policy = policy.New(policy.DefaultRules)
	}
	if cfg.RequireIssuedCode && cfg.Codes == nil {
		return nil, fmt.Errorf("issued join codes are required but no code store is configured")
	}

	return &Service{
		store: s,
		coordinator: coordinator.New(s, coordinator.Config{
			Policy:  cfg.Policy,
			Clock:   cfg.Clock,
			Metrics: cfg.Metrics,
		}),
		controller: lifecycle.NewController(s, lifecycle.ControllerConfig{
			Policy:  cfg.Policy,
			Clock:   cfg.Clock,
			Metrics: cfg.Metrics,
		}),
		projector:         projector.New(s),
		health:            store.NewHealthChecker(s),
		policy:            cfg.Policy,
		codes:             cfg.Codes,
		clock:             cfg.Clock,
		metrics:           cfg.Metrics,
		lockOnRead:        cfg.LockOnRead,
		requireIssuedCode: cfg.RequireIssuedCode,
	}, nil
}

// Controller exposes the lifecycle controller, used by the reconciler.
func (s *Service) Controller() *lifecycle.Controller {
	return s.controller
}

// EnsureSession creates the session named by code unless it exists and
// returns its id.
func (s *Service) EnsureSession(ctx context.Context, code string) (string, error) {
	id := strings.TrimSpace(code)
	if !sessionIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: invalid session code %q", session.ErrInvalidArgument, code)
	}

	if s.requireIssuedCode {
		ok, err := s.codes.Valid(ctx, id)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w: join code %s was not issued or has expired", session.ErrNotFound, id)
		}
	}

	_, created, err := s.store.Ensure(ctx, id, s.clock())
	if err != nil {
		logrus.Errorf("failed to ensure session %s: %v", id, err)
		return "", fmt.Errorf("failed to ensure session: %w", err)
	}
	if created {
		s.metrics.SessionCreated()
	}

	return id, nil
}

// JoinSession adds a player to an existing session.
func (s *Service) JoinSession(ctx context.Context, sessionID, userID, name string) error {
	_, err := s.coordinator.Join(ctx, strings.TrimSpace(sessionID), userID, name)
	return err
}

// AdminCreateGroups groups and locks a forming session. A nil countdownMs
// falls back to the policy countdown for the session.
func (s *Service) AdminCreateGroups(
	ctx context.Context,
	sessionID string,
	groupSize int,
	fixedByUserID map[string]int,
	countdownMs *int64,
) error {
	sessionID = strings.TrimSpace(sessionID)
	opts := lifecycle.LockOptions{
		GroupSize: groupSize,
		Fixed:     fixedByUserID,
	}
	if countdownMs != nil {
		opts.CountdownMs = *countdownMs
	} else {
		opts.CountdownMs = s.policy.For(sessionID).CountdownMs
	}

	_, _, err := s.controller.LockAndCreateGroups(ctx, sessionID, opts)
	return err
}

// AdminStart moves a locked session to running. Starting a running session
// is accepted and changes nothing.
func (s *Service) AdminStart(ctx context.Context, sessionID string) error {
	_, _, err := s.controller.Start(ctx, strings.TrimSpace(sessionID))
	return err
}

// Finish marks a running session done. The join code naming the session is
// revoked so it cannot be used to join again.
func (s *Service) Finish(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	_, finished, err := s.controller.Finish(ctx, sessionID)
	if err != nil {
		return err
	}

	if finished && s.codes != nil {
		if err := s.codes.Revoke(ctx, sessionID); err != nil {
			logrus.Warnf("failed to revoke join code of finished session %s: %v", sessionID, err)
		}
	}
	return nil
}

// ReadState returns the public view of a session for forUserID.
func (s *Service) ReadState(ctx context.Context, sessionID, forUserID string) (*projector.PublicState, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", session.ErrInvalidArgument)
	}
	return s.projector.Snapshot(ctx, sessionID, strings.TrimSpace(forUserID))
}

// LockIfReady groups the session once it has enough players. It never fails.
func (s *Service) LockIfReady(ctx context.Context, sessionKey string) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return
	}
	s.controller.LockAndCreateGroupsIfReady(ctx, sessionKey, 0)
}

// Poll is the read path clients call repeatedly.
func (s *Service) Poll(ctx context.Context, sessionID, forUserID string) (*projector.PublicState, error) {
	if s.lockOnRead {
		s.LockIfReady(ctx, sessionID)
	}
	return s.ReadState(ctx, sessionID, forUserID)
}

// IssueJoinCode hands out a fresh join code.
func (s *Service) IssueJoinCode(ctx context.Context) (*joincode.Code, error) {
	if s.codes != nil {
		return s.codes.Issue(ctx)
	}

	value, err := joincode.Generate()
	if err != nil {
		return nil, err
	}
	return &joincode.Code{Value: value}, nil
}

// Ping checks the session store.
func (s *Service) Ping(ctx context.Context) error {
	return s.health.Check(ctx)
}
