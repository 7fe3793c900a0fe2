package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	"github.com/blackbridgeaiagency-star/flywheel/internal/config"
	"github.com/blackbridgeaiagency-star/flywheel/internal/lock"
	"github.com/blackbridgeaiagency-star/flywheel/internal/migration"
	"github.com/blackbridgeaiagency-star/flywheel/internal/observability"
	"github.com/blackbridgeaiagency-star/flywheel/internal/scheduler"
	"github.com/blackbridgeaiagency-star/flywheel/internal/server"
	"github.com/blackbridgeaiagency-star/flywheel/internal/tier"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		tier.Module,
		migration.Module,

		// domain modules ride in on the HTTP server
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
