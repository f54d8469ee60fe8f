package domain

import (
	"context"
	"errors"
	"time"

	userdomain "github.com/smallbiznis/creditledger/internal/user/domain"
)

type SubscribeRequest struct {
	UserID           string
	PlanID           string
	StartDate        time.Time
	PaymentReference string
	FirstMonthAmount *float64
}

type UnsubscribeRequest struct {
	UserID         string
	SubscriptionID string
	// EndDate bounds the coverage; cancellation takes effect immediately but
	// already paid coverage runs until here.
	EndDate time.Time
}

type Service interface {
	// GetSubscriptionHistoryForUserInPeriod returns every subscription
	// overlapping [startDate, endDate), gaps filled with free plan
	// subscriptions so the whole period is covered.
	GetSubscriptionHistoryForUserInPeriod(ctx context.Context, user userdomain.User, startDate, endDate time.Time) ([]Subscription, error)

	// GetNotYetCancelledSubscriptions returns the subscriptions started at or
	// before date whose cancellation, if any, lies after it.
	GetNotYetCancelledSubscriptions(ctx context.Context, user userdomain.User, date time.Time) ([]Subscription, error)

	Subscribe(ctx context.Context, req SubscribeRequest) (Subscription, error)
	Unsubscribe(ctx context.Context, req UnsubscribeRequest) error
}

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidPlan          = errors.New("invalid_plan")
	ErrInvalidPeriod        = errors.New("invalid_period")
	ErrAlreadyCancelled     = errors.New("already_cancelled")
)
