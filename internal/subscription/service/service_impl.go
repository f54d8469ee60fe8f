package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/plan"
	"github.com/smallbiznis/creditledger/internal/subscription/domain"
	userdomain "github.com/smallbiznis/creditledger/internal/user/domain"
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
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) GetSubscriptionHistoryForUserInPeriod(ctx context.Context, user userdomain.User, startDate, endDate time.Time) ([]domain.Subscription, error) {
	if !startDate.Before(endDate) {
		return nil, domain.ErrInvalidPeriod
	}
	model, err := s.modelForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	var out []domain.Subscription
	for _, sub := range model.MergedWithFreeSubscriptions() {
		if sub.OverlapsPeriod(startDate, endDate) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *Service) GetNotYetCancelledSubscriptions(ctx context.Context, user userdomain.User, date time.Time) ([]domain.Subscription, error) {
	model, err := s.modelForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	var out []domain.Subscription
	for _, sub := range model.MergedWithFreeSubscriptions() {
		if sub.StartDate.After(date) {
			continue
		}
		if sub.CancellationDate != nil && !sub.CancellationDate.After(date) {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *Service) Subscribe(ctx context.Context, req domain.SubscribeRequest) (domain.Subscription, error) {
	p, ok := plan.GetByID(strings.TrimSpace(req.PlanID))
	if !ok {
		return domain.Subscription{}, domain.ErrInvalidPlan
	}

	amount := p.HoursPerMonth
	if p.Unlimited {
		amount = plan.AbsoluteMaxUsage
	}

	now := time.Now().UTC()
	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = now
	}

	sub := domain.Subscription{
		PlanID:           p.ID,
		Amount:           amount,
		FirstMonthAmount: req.FirstMonthAmount,
		StartDate:        startDate.UTC(),
		PaymentData:      datatypes.JSONMap{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if ref := strings.TrimSpace(req.PaymentReference); ref != "" {
		sub.PaymentReference = &ref
	}

	model := domain.NewSubscriptionModel(s.genID, req.UserID, startDate, nil)
	created := model.Add(sub)
	if err := s.applyDelta(ctx, model.GetResult()); err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("subscription created",
		zap.String("user_id", created.UserID),
		zap.String("plan_id", created.PlanID),
		zap.String("subscription_id", created.UID()),
	)
	return created, nil
}

func (s *Service) Unsubscribe(ctx context.Context, req domain.UnsubscribeRequest) error {
	id, err := snowflake.ParseString(strings.TrimSpace(req.SubscriptionID))
	if err != nil {
		return domain.ErrSubscriptionNotFound
	}
	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil || existing.UserID != req.UserID {
		return domain.ErrSubscriptionNotFound
	}
	if existing.IsCancelled() {
		return domain.ErrAlreadyCancelled
	}

	now := time.Now().UTC()
	endDate := req.EndDate
	if endDate.IsZero() {
		endDate = now
	}
	existing.UpdatedAt = now

	model := domain.NewSubscriptionModel(s.genID, req.UserID, existing.StartDate, []domain.Subscription{*existing})
	model.Cancel(*existing, now, &endDate)
	if err := s.applyDelta(ctx, model.GetResult()); err != nil {
		return err
	}

	s.log.Info("subscription cancelled",
		zap.String("user_id", req.UserID),
		zap.String("subscription_id", existing.UID()),
		zap.Time("end_date", endDate),
	)
	return nil
}

func (s *Service) modelForUser(ctx context.Context, user userdomain.User) (*domain.SubscriptionModel, error) {
	subscriptions, err := s.repo.FindAllByUser(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	return domain.NewSubscriptionModel(s.genID, user.ID, user.CreationDate, subscriptions), nil
}

func (s *Service) applyDelta(ctx context.Context, delta domain.Delta) error {
	if delta.Empty() {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.ApplyDelta(ctx, tx, delta)
	})
}
