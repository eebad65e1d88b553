package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/domainledger/internal/notification"
	"github.com/smallbiznis/domainledger/internal/observability/logger"
	"github.com/smallbiznis/domainledger/internal/observability/metrics"
	"github.com/smallbiznis/domainledger/internal/queue"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
	"go.uber.org/zap"
)

// SyncRegistrarDomains imports the registrar's domain list and queues a sync for each
// domain. Registrars without a usable roster are skipped with a log line.
func (j *Jobs) SyncRegistrarDomains(ctx context.Context, item queue.WorkItem) error {
	log := logger.WithContext(ctx, j.log).With(zap.Int64("registrar_id", item.RegistrarID))

	registrar, err := j.registrars.Get(ctx, item.RegistrarID)
	if errors.Is(err, registrardomain.ErrRegistrarNotFound) {
		log.Warn("registrar.domains.skipped", zap.String("reason", "not_found"))
		return nil
	}
	if err != nil {
		return err
	}
	log = logger.WithRegistrar(log, registrar.ID, registrar.Label())
	if !registrar.HasAPISupport() {
		log.Info("registrar.domains.skipped", zap.String("reason", "no_api_support"))
		return nil
	}
	resolved, err := j.registrars.Resolve(ctx, registrar.ID)
	if err != nil {
		log.Warn("registrar.domains.skipped", zap.String("reason", "unresolved"), zap.Error(err))
		return nil
	}
	client := resolved.Client
	if !client.Capabilities().DomainRoster {
		log.Info("registrar.domains.skipped", zap.String("reason", "no_roster"))
		return nil
	}
	if !client.IsConfigured() {
		log.Warn("registrar.domains.skipped", zap.String("reason", "not_configured"))
		return nil
	}

	start := time.Now()
	roster, err := client.GetDomains(ctx)
	j.syncMetrics.ObserveRegistrarCall(registrar.Label(), "get_domains", time.Since(start), err)
	if err != nil {
		return j.rosterFailed(ctx, item, registrar, err, log)
	}

	result, err := j.domains.ImportRoster(ctx, registrar.ID, roster)
	if err != nil {
		return j.rosterFailed(ctx, item, registrar, err, log)
	}

	items := make([]queue.WorkItem, 0, len(result.DomainIDs))
	for _, id := range result.DomainIDs {
		items = append(items, queue.SyncDomain(id, item.UserID))
	}
	if len(items) > 0 {
		if err := j.queue.Enqueue(ctx, items...); err != nil {
			return j.rosterFailed(ctx, item, registrar, err, log)
		}
	}
	j.syncMetrics.AddEnqueued(string(queue.KindSyncDomain), len(items))

	if err := j.registrars.TouchLastSync(ctx, registrar.ID); err != nil {
		log.Warn("registrar.domains.touch_failed", zap.Error(err))
	}
	j.metrics.RecordRosterSync(ctx, registrar.Label(), metrics.OutcomeOK)
	log.Info("registrar.domains.synced",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
	)
	return nil
}

func (j *Jobs) rosterFailed(ctx context.Context, item queue.WorkItem, registrar *registrardomain.Registrar, err error, log *zap.Logger) error {
	if item.WillRetry(err) {
		return err
	}
	log.Error("registrar.domains.failed", zap.Error(err))
	j.metrics.RecordRosterSync(ctx, registrar.Label(), metrics.OutcomeError)
	j.notifier.Notify(ctx, item.UserID, notification.TitleDomainSyncFailed,
		fmt.Sprintf("Failed to sync domains for %s: %s", registrar.Name, err), notification.LevelDanger)
	return nil
}
