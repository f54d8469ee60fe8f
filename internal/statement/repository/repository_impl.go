package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/statement/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ReplaceSnapshot(ctx context.Context, db *gorm.DB, snapshot *domain.StatementSnapshot) error {
	err := db.WithContext(ctx).
		Where("user_id = ?", snapshot.UserID).
		Delete(&domain.StatementSnapshot{}).Error
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(snapshot).Error
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.StatementSnapshot, error) {
	var snapshot domain.StatementSnapshot
	err := db.WithContext(ctx).First(&snapshot, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
