package domain

import (
	"context"
	"errors"
	"time"
)

type GrantRequest struct {
	UserID      string
	Amount      float64
	Date        time.Time
	ExpiryDate  *time.Time
	Description string
}

type Service interface {
	Grant(ctx context.Context, req GrantRequest) (CreditGrant, error)

	// FindOpenCredits returns grants whose validity began before date.
	FindOpenCredits(ctx context.Context, userID string, date time.Time) ([]CreditGrant, error)
}

var (
	ErrInvalidGrant  = errors.New("invalid_grant")
	ErrInvalidAmount = errors.New("invalid_amount")
)
