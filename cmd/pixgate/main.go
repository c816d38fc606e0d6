package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/lumapag/pixgate/internal/charge"
	"github.com/lumapag/pixgate/internal/clock"
	"github.com/lumapag/pixgate/internal/config"
	"github.com/lumapag/pixgate/internal/entitlement"
	"github.com/lumapag/pixgate/internal/logger"
	"github.com/lumapag/pixgate/internal/migration"
	"github.com/lumapag/pixgate/internal/notify/telegram"
	"github.com/lumapag/pixgate/internal/observability/metrics"
	"github.com/lumapag/pixgate/internal/provider"
	"github.com/lumapag/pixgate/internal/reconcile"
	"github.com/lumapag/pixgate/internal/server"
	"github.com/lumapag/pixgate/internal/sweeper"
	"github.com/lumapag/pixgate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		metrics.Module,

		// Functional domains
		telegram.Module,
		provider.Module,
		entitlement.Module,
		charge.Module,
		reconcile.Module,
		sweeper.Module,
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
