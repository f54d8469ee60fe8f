package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/creditledger/internal/accounting"
)

type RemainingUsageRequest struct {
	UserID string
	// Date is the statement end the projection starts from; zero means now.
	Date time.Time
	// NumInstances is how many workspaces are assumed to run nonstop.
	NumInstances       int
	ConsiderNextPeriod bool
}

type Service interface {
	// GetAccountStatement reconciles the user's account from their creation
	// date up to endDate.
	GetAccountStatement(ctx context.Context, userID string, endDate time.Time) (*accounting.Statement, error)

	// GetRemainingUsageHours projects when the user's balance runs out.
	GetRemainingUsageHours(ctx context.Context, req RemainingUsageRequest) (accounting.RemainingHours, error)

	// RefreshStatement recomputes the statement and replaces the user's
	// snapshot.
	RefreshStatement(ctx context.Context, userID string, endDate time.Time) (*accounting.Statement, error)

	// GetSnapshot returns the last persisted snapshot for the user.
	GetSnapshot(ctx context.Context, userID string) (*StatementSnapshot, error)
}

var (
	ErrNoActiveSubscription = errors.New("no_active_subscription")
	ErrSnapshotNotFound     = errors.New("snapshot_not_found")
)
