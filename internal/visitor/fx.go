package visitor

import (
	"github.com/prepdeck/metering/internal/visitor/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("visitor",
	fx.Provide(repository.NewRepository),
)
