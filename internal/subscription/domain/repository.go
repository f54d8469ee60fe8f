package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindAllByUser(ctx context.Context, db *gorm.DB, userID string) ([]Subscription, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByPaymentReference(ctx context.Context, db *gorm.DB, ref string) (*Subscription, error)
	ApplyDelta(ctx context.Context, db *gorm.DB, delta Delta) error
}
