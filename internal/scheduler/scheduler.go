package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/creditledger/internal/clock"
	obsmetrics "github.com/smallbiznis/creditledger/internal/observability/metrics"
	statementdomain "github.com/smallbiznis/creditledger/internal/statement/domain"
	userdomain "github.com/smallbiznis/creditledger/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobRefreshStatements = "refresh_statements"

var ErrInvalidConfig = errors.New("scheduler: missing required dependency")

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	UserSvc      userdomain.Service
	StatementSvc statementdomain.Service
	Config       Config `optional:"true"`
}

// Scheduler periodically recomputes and persists statement snapshots for all
// users so reads that tolerate staleness never pay the reconciliation cost.
type Scheduler struct {
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	userSvc      userdomain.Service
	statementSvc statementdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.UserSvc == nil || p.StatementSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		userSvc:      p.UserSvc,
		statementSvc: p.StatementSvc,
	}, nil
}

// RunForever drives the refresh loop until ctx is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	s.log.Info("refresh worker started",
		zap.Duration("run_interval", s.cfg.RunInterval),
		zap.Int("batch_size", s.cfg.BatchSize),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("refresh worker stopped")
			return
		case tick := <-ticker.C:
			obsmetrics.Refresh().ObserveRunLoopLag(time.Since(tick))
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("refresh run failed", zap.Error(err))
			}
		}
	}
}

// RunOnce refreshes the statement snapshot for every user, paging in batches.
// It returns the number of users refreshed.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	start := s.clock.Now()
	refreshMetrics := obsmetrics.Refresh()
	refreshMetrics.IncJobRun(jobRefreshStatements)

	refreshed := 0
	afterID := ""
	for {
		ids, err := s.userSvc.ListUserIDs(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			refreshMetrics.IncJobError(jobRefreshStatements, err)
			return refreshed, err
		}
		if len(ids) == 0 {
			break
		}

		for _, userID := range ids {
			if err := s.refreshUser(ctx, userID); err != nil {
				if errors.Is(err, context.Canceled) {
					return refreshed, err
				}
				// One bad account must not starve the rest of the fleet.
				refreshMetrics.IncJobError(jobRefreshStatements, err)
				s.log.Warn("statement refresh failed",
					zap.String("user_id", userID),
					zap.String("reason", obsmetrics.ClassifyRefreshJobReason(err)),
					zap.Error(err),
				)
				continue
			}
			refreshed++
		}

		refreshMetrics.AddBatchProcessed(jobRefreshStatements, "users", len(ids))
		afterID = ids[len(ids)-1]
		if len(ids) < s.cfg.BatchSize {
			break
		}
	}

	refreshMetrics.ObserveJobDuration(jobRefreshStatements, time.Since(start))
	s.log.Debug("refresh run finished",
		zap.Int("refreshed", refreshed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return refreshed, nil
}

func (s *Scheduler) refreshUser(parent context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	_, err := s.statementSvc.RefreshStatement(ctx, userID, s.clock.Now())
	if errors.Is(err, context.DeadlineExceeded) {
		obsmetrics.Refresh().IncJobTimeout(jobRefreshStatements)
	}
	return err
}
