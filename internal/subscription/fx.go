package subscription

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/creditledger/internal/subscription/repository"
	"github.com/smallbiznis/creditledger/internal/subscription/service"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
