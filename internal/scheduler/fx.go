package scheduler

import (
	"context"

	"github.com/smallbiznis/creditledger/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

// ProvideConfig prefers the hot-reloadable refresh.yml settings and falls
// back to the env-derived defaults.
func ProvideConfig(cfg config.Config, holder *config.RefreshConfigHolder) Config {
	refresh := cfg.Refresh
	if holder != nil {
		refresh = holder.Get()
	}
	return Config{
		RunInterval: refresh.RunInterval,
		BatchSize:   refresh.BatchSize,
		JobTimeout:  refresh.JobTimeout,
	}
}

func NewScheduler(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.Refresh.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
