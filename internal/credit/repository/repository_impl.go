package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/credit/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, grant *domain.CreditGrant) error {
	return db.WithContext(ctx).Create(grant).Error
}

func (r *repo) FindOpenCredits(ctx context.Context, db *gorm.DB, userID string, date time.Time) ([]domain.CreditGrant, error) {
	var grants []domain.CreditGrant
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("date < ?", date).
		Order("date asc, id asc").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}
