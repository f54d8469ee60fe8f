package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/user/domain"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("user.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrInvalidUser
	}
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *user, nil
}

func (s *Service) Create(ctx context.Context, user domain.User) (domain.User, error) {
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return domain.User{}, domain.ErrInvalidUser
	}
	now := time.Now().UTC()
	if user.CreationDate.IsZero() {
		user.CreationDate = now
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Service) ListUserIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListIDs(ctx, s.db, strings.TrimSpace(afterID), limit)
}
