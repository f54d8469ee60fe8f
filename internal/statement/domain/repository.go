package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// ReplaceSnapshot removes the user's previous snapshot and writes the new
	// one. Callers run it inside a transaction.
	ReplaceSnapshot(ctx context.Context, db *gorm.DB, snapshot *StatementSnapshot) error
	FindByUser(ctx context.Context, db *gorm.DB, userID string) (*StatementSnapshot, error)
}
