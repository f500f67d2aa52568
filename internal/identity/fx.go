package identity

import (
	"github.com/smallgrid/aquabill/internal/identity/repository"
	"github.com/smallgrid/aquabill/internal/identity/service"
	"github.com/smallgrid/aquabill/internal/identity/token"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(token.NewIssuer),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
