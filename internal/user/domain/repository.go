package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*User, error)
	// ListIDs returns up to limit user ids greater than afterID, in id order.
	ListIDs(ctx context.Context, db *gorm.DB, afterID string, limit int) ([]string, error)
}
