package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, grant *CreditGrant) error
	FindOpenCredits(ctx context.Context, db *gorm.DB, userID string, date time.Time) ([]CreditGrant, error)
}
