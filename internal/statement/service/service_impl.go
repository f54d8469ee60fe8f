package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/creditledger/internal/accounting"
	creditdomain "github.com/smallbiznis/creditledger/internal/credit/domain"
	"github.com/smallbiznis/creditledger/internal/statement/domain"
	subscriptiondomain "github.com/smallbiznis/creditledger/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/creditledger/internal/usage/domain"
	userdomain "github.com/smallbiznis/creditledger/internal/user/domain"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Engine        *accounting.Engine
	Repo          domain.Repository
	Users         userdomain.Service
	Subscriptions subscriptiondomain.Service
	Credits       creditdomain.Service
	Usage         usagedomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	engine        *accounting.Engine
	repo          domain.Repository
	users         userdomain.Service
	subscriptions subscriptiondomain.Service
	credits       creditdomain.Service
	usage         usagedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("statement.service"),
		genID:         p.GenID,
		engine:        p.Engine,
		repo:          p.Repo,
		users:         p.Users,
		subscriptions: p.Subscriptions,
		credits:       p.Credits,
		usage:         p.Usage,
	}
}

// GetAccountStatement reconciles from the user's creation date each run; no
// incremental state is carried between statements.
func (s *Service) GetAccountStatement(ctx context.Context, userID string, endDate time.Time) (*accounting.Statement, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	window := accounting.Window{Start: user.CreationDate, End: endDate.UTC()}

	subscriptions, err := s.subscriptions.GetSubscriptionHistoryForUserInPeriod(ctx, user, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	active, err := s.subscriptions.GetNotYetCancelledSubscriptions(ctx, user, window.End)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		// Free plan fillers guarantee coverage; an empty result means the
		// subscription data is inconsistent.
		s.log.Error("no uncancelled subscription found",
			zap.String("user_id", userID),
			zap.Time("date", window.End),
		)
		return nil, domain.ErrNoActiveSubscription
	}
	grants, err := s.credits.FindOpenCredits(ctx, userID, window.End)
	if err != nil {
		return nil, err
	}
	sessions, err := s.usage.ListSessionsInPeriod(ctx, userID, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	return s.engine.ComputeStatement(accounting.StatementInput{
		UserID:              userID,
		Window:              window,
		Subscriptions:       subscriptions,
		ActiveSubscriptions: active,
		Grants:              grantsToCredits(grants),
		Sessions:            sessions,
	}), nil
}

func (s *Service) GetRemainingUsageHours(ctx context.Context, req domain.RemainingUsageRequest) (accounting.RemainingHours, error) {
	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	statement, err := s.GetAccountStatement(ctx, req.UserID, date)
	if err != nil {
		return accounting.RemainingHours{}, err
	}
	if statement.RemainingHrs.Unlimited {
		return accounting.RemainingHours{Unlimited: true}, nil
	}
	hours := s.engine.RemainingUsageHours(statement, req.NumInstances, req.ConsiderNextPeriod)
	return accounting.RemainingHours{Hours: hours}, nil
}

func (s *Service) RefreshStatement(ctx context.Context, userID string, endDate time.Time) (*accounting.Statement, error) {
	statement, err := s.GetAccountStatement(ctx, userID, endDate)
	if err != nil {
		return nil, err
	}

	creditsJSON, err := json.Marshal(statement.Credits)
	if err != nil {
		return nil, err
	}
	debitsJSON, err := json.Marshal(statement.Debits)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	snapshot := domain.StatementSnapshot{
		ID:             s.genID.Generate(),
		UserID:         userID,
		StartDate:      statement.StartDate,
		EndDate:        statement.EndDate,
		Unlimited:      statement.RemainingHrs.Unlimited,
		RemainingHours: statement.RemainingHrs.Hours,
		Credits:        creditsJSON,
		Debits:         debitsJSON,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.ReplaceSnapshot(ctx, tx, &snapshot)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("statement snapshot refreshed",
		zap.String("user_id", userID),
		zap.Time("end_date", statement.EndDate),
		zap.Int("credits", len(statement.Credits)),
		zap.Int("debits", len(statement.Debits)),
	)
	return statement, nil
}

func (s *Service) GetSnapshot(ctx context.Context, userID string) (*domain.StatementSnapshot, error) {
	snapshot, err := s.repo.FindByUser(ctx, s.db, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func grantsToCredits(grants []creditdomain.CreditGrant) []*accounting.Credit {
	credits := make([]*accounting.Credit, 0, len(grants))
	for i := range grants {
		g := &grants[i]
		c := &accounting.Credit{
			UID:             g.ID.String(),
			UserID:          g.UserID,
			Amount:          g.Amount,
			Date:            g.Date,
			RemainingAmount: g.Amount,
			Description:     g.Description,
		}
		if g.ExpiryDate != nil {
			c.ExpiryDate = *g.ExpiryDate
		}
		credits = append(credits, c)
	}
	return credits
}
