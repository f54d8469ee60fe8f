package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/subscription/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindAllByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Subscription, error) {
	var subscriptions []domain.Subscription
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date asc, id asc").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).First(&subscription, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) FindByPaymentReference(ctx context.Context, db *gorm.DB, ref string) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).First(&subscription, "payment_reference = ?", ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// ApplyDelta writes the pending change set. Callers run it inside a
// transaction so a half-applied delta never becomes visible.
func (r *repo) ApplyDelta(ctx context.Context, db *gorm.DB, delta domain.Delta) error {
	for i := range delta.Updates {
		if err := db.WithContext(ctx).Save(&delta.Updates[i]).Error; err != nil {
			return err
		}
	}
	for i := range delta.Inserts {
		if err := db.WithContext(ctx).Create(&delta.Inserts[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
