package account

import (
	"github.com/prepdeck/metering/internal/account/repository"
	"github.com/prepdeck/metering/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
