package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/domains"
	"github.com/smallbiznis/domainledger/internal/fee"
	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/jobs"
	"github.com/smallbiznis/domainledger/internal/migration"
	"github.com/smallbiznis/domainledger/internal/notification"
	"github.com/smallbiznis/domainledger/internal/observability"
	"github.com/smallbiznis/domainledger/internal/observability/push"
	"github.com/smallbiznis/domainledger/internal/queue"
	"github.com/smallbiznis/domainledger/internal/ratelimit"
	"github.com/smallbiznis/domainledger/internal/rdap"
	"github.com/smallbiznis/domainledger/internal/registrar"
	"github.com/smallbiznis/domainledger/internal/scheduler"
	"github.com/smallbiznis/domainledger/internal/server"
	"github.com/smallbiznis/domainledger/internal/whois"
	"github.com/smallbiznis/domainledger/pkg/db"
	"github.com/smallbiznis/domainledger/pkg/redisclient"
	"go.uber.org/fx"
)

// All-in-one process: HTTP API, queue worker and scheduler.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		push.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		redisclient.Module,
		ratelimit.Module,
		queue.Module,
		fetcher.Module,

		// Functional Domains
		registrar.Module,
		fee.Module,
		rdap.Module,
		whois.Module,
		notification.Module,
		domains.Module,
		jobs.Module,

		queue.WorkerModule,
		scheduler.Module,
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
