package user

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/creditledger/internal/user/repository"
	"github.com/smallbiznis/creditledger/internal/user/service"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
