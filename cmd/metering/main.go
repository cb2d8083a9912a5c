package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/prepdeck/metering/internal/account"
	"github.com/prepdeck/metering/internal/clock"
	"github.com/prepdeck/metering/internal/config"
	"github.com/prepdeck/metering/internal/logger"
	"github.com/prepdeck/metering/internal/migration"
	"github.com/prepdeck/metering/internal/observability/metrics"
	"github.com/prepdeck/metering/internal/ratelimit"
	"github.com/prepdeck/metering/internal/server"
	"github.com/prepdeck/metering/internal/usage"
	"github.com/prepdeck/metering/internal/visitor"
	"github.com/prepdeck/metering/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		migration.Module,

		// Domains
		visitor.Module,
		account.Module,
		usage.Module,

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
