package domain

import (
	"context"
	"errors"
)

type Service interface {
	GetByID(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	// ListUserIDs pages through all user ids in id order. An empty afterID
	// starts from the beginning.
	ListUserIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

var (
	ErrUserNotFound = errors.New("user_not_found")
	ErrInvalidUser  = errors.New("invalid_user")
)
