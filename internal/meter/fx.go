package meter

import (
	"github.com/smallgrid/aquabill/internal/meter/repository"
	"github.com/smallgrid/aquabill/internal/meter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meter.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
