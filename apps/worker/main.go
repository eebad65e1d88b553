package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/domains"
	"github.com/smallbiznis/domainledger/internal/fee"
	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/jobs"
	"github.com/smallbiznis/domainledger/internal/notification"
	"github.com/smallbiznis/domainledger/internal/observability"
	"github.com/smallbiznis/domainledger/internal/observability/push"
	"github.com/smallbiznis/domainledger/internal/queue"
	"github.com/smallbiznis/domainledger/internal/ratelimit"
	"github.com/smallbiznis/domainledger/internal/rdap"
	"github.com/smallbiznis/domainledger/internal/registrar"
	"github.com/smallbiznis/domainledger/internal/whois"
	"github.com/smallbiznis/domainledger/pkg/db"
	"github.com/smallbiznis/domainledger/pkg/redisclient"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		push.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redisclient.Module,
		ratelimit.Module,
		queue.Module,
		fetcher.Module,

		registrar.Module,
		fee.Module,
		rdap.Module,
		whois.Module,
		notification.Module,
		domains.Module,
		jobs.Module,

		// No server or scheduler; this process only drains the queue.
		queue.WorkerModule,
	)
	app.Run()
}

// RegisterSnowflake uses WORKER_NODE_ID so several workers mint distinct ids.
func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(2)
	if raw := os.Getenv("WORKER_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}
