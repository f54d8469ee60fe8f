package usage

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/creditledger/internal/usage/repository"
	"github.com/smallbiznis/creditledger/internal/usage/service"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
