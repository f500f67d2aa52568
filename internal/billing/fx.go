package billing

import (
	"github.com/smallgrid/aquabill/internal/billing/repository"
	"github.com/smallgrid/aquabill/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
