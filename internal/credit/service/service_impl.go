package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/credit/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("credit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Grant(ctx context.Context, req domain.GrantRequest) (domain.CreditGrant, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.CreditGrant{}, domain.ErrInvalidGrant
	}
	if req.Amount <= 0 {
		return domain.CreditGrant{}, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	date := req.Date
	if date.IsZero() {
		date = now
	}
	if req.ExpiryDate != nil && !req.ExpiryDate.After(date) {
		return domain.CreditGrant{}, domain.ErrInvalidGrant
	}

	grant := domain.CreditGrant{
		ID:          s.genID.Generate(),
		UserID:      userID,
		Amount:      req.Amount,
		Date:        date.UTC(),
		ExpiryDate:  req.ExpiryDate,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &grant); err != nil {
		return domain.CreditGrant{}, err
	}

	s.log.Info("credit granted",
		zap.String("user_id", grant.UserID),
		zap.Float64("amount", grant.Amount),
		zap.String("grant_id", grant.ID.String()),
	)
	return grant, nil
}

func (s *Service) FindOpenCredits(ctx context.Context, userID string, date time.Time) ([]domain.CreditGrant, error) {
	return s.repo.FindOpenCredits(ctx, s.db, strings.TrimSpace(userID), date)
}
