package site

import (
	"github.com/smallgrid/aquabill/internal/site/repository"
	"github.com/smallgrid/aquabill/internal/site/service"
	"go.uber.org/fx"
)

var Module = fx.Module("site.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
