package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopfinder/internal/clock"
	"github.com/smallbiznis/shopfinder/internal/config"
	"github.com/smallbiznis/shopfinder/internal/migration"
	"github.com/smallbiznis/shopfinder/internal/observability"
	"github.com/smallbiznis/shopfinder/internal/server"
	"github.com/smallbiznis/shopfinder/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and the domains behind it
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
