package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/usage/domain"
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
		log:   p.Log.Named("usage.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) StartSession(ctx context.Context, req domain.StartSessionRequest) (domain.WorkspaceSession, error) {
	userID := strings.TrimSpace(req.UserID)
	instanceID := strings.TrimSpace(req.InstanceID)
	if userID == "" || instanceID == "" || strings.TrimSpace(req.WorkspaceID) == "" {
		return domain.WorkspaceSession{}, domain.ErrInvalidSession
	}

	workspaceType := req.WorkspaceType
	if workspaceType == "" {
		workspaceType = domain.WorkspaceTypeRegular
	}

	now := time.Now().UTC()
	startedAt := req.StartedAt
	if startedAt == nil && !req.Pending {
		startedAt = &now
	}

	session := domain.WorkspaceSession{
		ID:            s.genID.Generate(),
		UserID:        userID,
		WorkspaceID:   strings.TrimSpace(req.WorkspaceID),
		InstanceID:    instanceID,
		WorkspaceType: workspaceType,
		ContextTitle:  req.ContextTitle,
		ContextURL:    req.ContextURL,
		StartedAt:     startedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, &session); err != nil {
		return domain.WorkspaceSession{}, err
	}
	return session, nil
}

func (s *Service) StopSession(ctx context.Context, req domain.StopSessionRequest) (domain.WorkspaceSession, error) {
	instanceID := strings.TrimSpace(req.InstanceID)
	if instanceID == "" {
		return domain.WorkspaceSession{}, domain.ErrInvalidSession
	}

	session, err := s.repo.FindByInstanceID(ctx, s.db, instanceID)
	if err != nil {
		return domain.WorkspaceSession{}, err
	}
	if session == nil {
		return domain.WorkspaceSession{}, domain.ErrSessionNotFound
	}
	if session.StoppedAt != nil {
		return domain.WorkspaceSession{}, domain.ErrSessionAlreadyStopped
	}

	now := time.Now().UTC()
	stoppedAt := now
	if req.StoppedAt != nil {
		stoppedAt = req.StoppedAt.UTC()
	}
	session.StoppedAt = &stoppedAt
	if session.StoppingAt == nil {
		session.StoppingAt = &stoppedAt
	}
	session.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, session); err != nil {
		return domain.WorkspaceSession{}, err
	}
	return *session, nil
}

func (s *Service) ListSessionsInPeriod(ctx context.Context, userID string, startDate, endDate time.Time) ([]domain.WorkspaceSession, error) {
	return s.repo.FindSessionsInPeriod(ctx, s.db, strings.TrimSpace(userID), startDate, endDate)
}
