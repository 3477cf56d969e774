package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recurra/internal/clock"
	"github.com/smallbiznis/recurra/internal/config"
	"github.com/smallbiznis/recurra/internal/delivery"
	"github.com/smallbiznis/recurra/internal/notification"
	"github.com/smallbiznis/recurra/internal/observability"
	"github.com/smallbiznis/recurra/internal/pricing"
	"github.com/smallbiznis/recurra/internal/product"
	"github.com/smallbiznis/recurra/internal/providers"
	"github.com/smallbiznis/recurra/internal/ratelimit"
	"github.com/smallbiznis/recurra/internal/server"
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
		clock.Module,
		ratelimit.Module,

		product.Module,
		subscription.Module,
		notification.Module,
		pricing.Module,
		delivery.Module,
		providers.Module,

		// No scheduler; apps/scheduler owns the price-update sweep.
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
