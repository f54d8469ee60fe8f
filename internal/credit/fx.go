package credit

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/creditledger/internal/credit/repository"
	"github.com/smallbiznis/creditledger/internal/credit/service"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
