package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, session *WorkspaceSession) error
	Update(ctx context.Context, db *gorm.DB, session *WorkspaceSession) error
	FindByInstanceID(ctx context.Context, db *gorm.DB, instanceID string) (*WorkspaceSession, error)
	FindSessionsInPeriod(ctx context.Context, db *gorm.DB, userID string, startDate, endDate time.Time) ([]WorkspaceSession, error)
}
