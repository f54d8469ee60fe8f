package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/usage/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, session *domain.WorkspaceSession) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, session *domain.WorkspaceSession) error {
	return db.WithContext(ctx).Save(session).Error
}

func (r *repo) FindByInstanceID(ctx context.Context, db *gorm.DB, instanceID string) (*domain.WorkspaceSession, error) {
	var session domain.WorkspaceSession
	err := db.WithContext(ctx).First(&session, "instance_id = ?", instanceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) FindSessionsInPeriod(ctx context.Context, db *gorm.DB, userID string, startDate, endDate time.Time) ([]domain.WorkspaceSession, error) {
	var sessions []domain.WorkspaceSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("started_at IS NOT NULL").
		Where("started_at < ?", endDate).
		Where("(stopping_at IS NULL AND stopped_at IS NULL) OR COALESCE(stopping_at, stopped_at) > ?", startDate).
		Order("started_at asc, id asc").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
