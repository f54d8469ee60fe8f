package domain

import (
	"context"
	"errors"
	"time"
)

type StartSessionRequest struct {
	UserID        string
	WorkspaceID   string
	InstanceID    string
	WorkspaceType WorkspaceType
	ContextTitle  string
	ContextURL    string
	// StartedAt defaults to now. Nil with Pending set records a session that
	// has not begun consuming yet.
	StartedAt *time.Time
	Pending   bool
}

type StopSessionRequest struct {
	InstanceID string
	// StoppedAt defaults to now.
	StoppedAt *time.Time
}

type Service interface {
	StartSession(ctx context.Context, req StartSessionRequest) (WorkspaceSession, error)
	StopSession(ctx context.Context, req StopSessionRequest) (WorkspaceSession, error)

	// ListSessionsInPeriod returns sessions overlapping [startDate, endDate),
	// running sessions included.
	ListSessionsInPeriod(ctx context.Context, userID string, startDate, endDate time.Time) ([]WorkspaceSession, error)
}

var (
	ErrSessionNotFound       = errors.New("session_not_found")
	ErrInvalidSession        = errors.New("invalid_session")
	ErrSessionAlreadyStopped = errors.New("session_already_stopped")
)
