// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import "errors"

var (
	// ErrNotFound indicates that the referenced play session does not exist.
	ErrNotFound = errors.New("play session not found")

	// ErrInvalidArgument indicates a malformed request, such as a group size below one.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidTransition indicates a lifecycle move the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyDone indicates that the play session has finished and accepts no joins.
	ErrAlreadyDone = errors.New("play session already done")

	// ErrConflict indicates that concurrent updates kept colliding after all retries.
	ErrConflict = errors.New("concurrent update conflict")
)
