package customer

import (
	"github.com/smallgrid/aquabill/internal/customer/repository"
	"github.com/smallgrid/aquabill/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
