package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/user/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) ListIDs(ctx context.Context, db *gorm.DB, afterID string, limit int) ([]string, error) {
	var ids []string
	stmt := db.WithContext(ctx).
		Model(&domain.User{}).
		Order("id asc").
		Limit(limit)
	if afterID != "" {
		stmt = stmt.Where("id > ?", afterID)
	}
	if err := stmt.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
