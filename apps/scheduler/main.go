package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recurra/internal/clock"
	"github.com/smallbiznis/recurra/internal/config"
	"github.com/smallbiznis/recurra/internal/metricspush"
	"github.com/smallbiznis/recurra/internal/migration"
	"github.com/smallbiznis/recurra/internal/notification"
	"github.com/smallbiznis/recurra/internal/observability"
	"github.com/smallbiznis/recurra/internal/pricing"
	"github.com/smallbiznis/recurra/internal/product"
	"github.com/smallbiznis/recurra/internal/ratelimit"
	"github.com/smallbiznis/recurra/internal/scheduler"
	"github.com/smallbiznis/recurra/internal/subscription"
	"github.com/smallbiznis/recurra/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		ratelimit.Module,

		// Domain services required by scheduler
		product.Module,
		subscription.Module,
		notification.Module,
		pricing.Module,

		// No server module, so metrics leave through the pusher.
		metricspush.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
