// Package jobs holds the queue handlers for every sync work item.
package jobs

import (
	"context"

	"github.com/smallbiznis/domainledger/internal/domains/aggregator"
	domaindomain "github.com/smallbiznis/domainledger/internal/domains/domain"
	feedomain "github.com/smallbiznis/domainledger/internal/fee/domain"
	"github.com/smallbiznis/domainledger/internal/notification"
	"github.com/smallbiznis/domainledger/internal/observability/metrics"
	"github.com/smallbiznis/domainledger/internal/queue"
	"github.com/smallbiznis/domainledger/internal/rdap"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("jobs",
	fx.Provide(
		func(a *aggregator.Aggregator) DomainSyncer { return a },
		func(d *rdap.Directory) DirectorySyncer { return d },
	),
	fx.Provide(New),
	fx.Provide(func(j *Jobs) queue.Handlers { return j.Handlers() }),
)

// DomainSyncer runs the fact-gathering pipeline for one domain.
type DomainSyncer interface {
	Sync(ctx context.Context, domainID int64, userID string) error
}

// DirectorySyncer refreshes the RDAP bootstrap directory.
type DirectorySyncer interface {
	Sync(ctx context.Context) (rdap.SyncResult, error)
}

type Params struct {
	fx.In

	Log         *zap.Logger
	Registrars  registrardomain.Service
	Fees        feedomain.Service
	Domains     domaindomain.Service
	Aggregator  DomainSyncer
	Directory   DirectorySyncer
	Queue       queue.Enqueuer
	Batches     queue.Batches
	Notifier    notification.Notifier
	Metrics     *metrics.Metrics     `optional:"true"`
	SyncMetrics *metrics.SyncMetrics `optional:"true"`
}

type Jobs struct {
	log         *zap.Logger
	registrars  registrardomain.Service
	fees        feedomain.Service
	domains     domaindomain.Service
	aggregator  DomainSyncer
	directory   DirectorySyncer
	queue       queue.Enqueuer
	batches     queue.Batches
	notifier    notification.Notifier
	metrics     *metrics.Metrics
	syncMetrics *metrics.SyncMetrics
}

func New(p Params) *Jobs {
	return &Jobs{
		log:         p.Log.Named("jobs"),
		registrars:  p.Registrars,
		fees:        p.Fees,
		domains:     p.Domains,
		aggregator:  p.Aggregator,
		directory:   p.Directory,
		queue:       p.Queue,
		batches:     p.Batches,
		notifier:    p.Notifier,
		metrics:     p.Metrics,
		syncMetrics: p.SyncMetrics,
	}
}

// Handlers maps every work item kind to its handler.
func (j *Jobs) Handlers() queue.Handlers {
	return queue.Handlers{
		queue.KindSyncDomain:              j.SyncDomain,
		queue.KindSyncRegistrarPrices:     j.SyncRegistrarPrices,
		queue.KindSyncRegistrarTypePrices: j.SyncRegistrarTypePrices,
		queue.KindBackfillRegistrarFees:   j.BackfillRegistrarFees,
		queue.KindSyncRegistrarDomains:    j.SyncRegistrarDomains,
		queue.KindSyncRdaps:               j.SyncRdaps,
	}
}

func (j *Jobs) SyncDomain(ctx context.Context, item queue.WorkItem) error {
	return j.aggregator.Sync(ctx, item.DomainID, item.UserID)
}
