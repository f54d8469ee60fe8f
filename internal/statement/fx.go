package statement

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/creditledger/internal/accounting"
	"github.com/smallbiznis/creditledger/internal/config"
	"github.com/smallbiznis/creditledger/internal/statement/repository"
	"github.com/smallbiznis/creditledger/internal/statement/service"
)

var Module = fx.Module("statement.service",
	fx.Provide(func(genID *snowflake.Node, log *zap.Logger, cfg config.Config) *accounting.Engine {
		return accounting.NewEngine(genID, log, accounting.ParseDebitDatePolicy(cfg.DebitDatePolicy))
	}),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
