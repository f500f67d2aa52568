package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/config"
	"github.com/smallgrid/aquabill/internal/migration"
	"github.com/smallgrid/aquabill/internal/observability"
	"github.com/smallgrid/aquabill/internal/server"
	"github.com/smallgrid/aquabill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
