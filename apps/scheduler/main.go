package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/domains"
	"github.com/smallbiznis/domainledger/internal/fee"
	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/notification"
	"github.com/smallbiznis/domainledger/internal/observability"
	"github.com/smallbiznis/domainledger/internal/queue"
	"github.com/smallbiznis/domainledger/internal/registrar"
	"github.com/smallbiznis/domainledger/internal/scheduler"
	"github.com/smallbiznis/domainledger/pkg/db"
	"github.com/smallbiznis/domainledger/pkg/redisclient"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redisclient.Module,
		queue.Module,
		fetcher.Module,

		// Domain services required by scheduler
		registrar.Module,
		fee.Module,
		notification.Module,
		domains.Module,

		// No server or worker module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(3)
	if err != nil {
		panic(err)
	}
	return node
}
