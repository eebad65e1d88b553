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

// SyncRegistrarPrices pulls the registrar's price list into its fee rows and, for
// registrars priced per category, fans out one item per category followed by a backfill.
func (j *Jobs) SyncRegistrarPrices(ctx context.Context, item queue.WorkItem) error {
	log := logger.WithContext(ctx, j.log).With(zap.Int64("registrar_id", item.RegistrarID))
	notify := func(body string, level notification.Level) {
		j.notifier.Notify(ctx, item.UserID, notification.TitleRegistrarPriceSync, body, level)
	}

	registrar, err := j.registrars.Get(ctx, item.RegistrarID)
	if errors.Is(err, registrardomain.ErrRegistrarNotFound) {
		log.Warn("registrar.prices.skipped", zap.String("reason", "not_found"))
		notify("Registrar not found", notification.LevelDanger)
		return nil
	}
	if err != nil {
		return err
	}
	log = logger.WithRegistrar(log, registrar.ID, registrar.Label())

	if !registrar.HasAPISupport() {
		notify(fmt.Sprintf("%s does not have API support", registrar.Name), notification.LevelWarning)
		return nil
	}
	resolved, err := j.registrars.Resolve(ctx, registrar.ID)
	if err != nil || !resolved.Client.IsConfigured() {
		log.Warn("registrar.prices.skipped", zap.String("reason", "not_configured"), zap.Error(err))
		notify(fmt.Sprintf("%s API is not properly configured", registrar.Name), notification.LevelDanger)
		return nil
	}
	client := resolved.Client

	start := time.Now()
	quotes, err := client.GetPrices(ctx)
	j.syncMetrics.ObserveRegistrarCall(registrar.Label(), "get_prices", time.Since(start), err)
	if err != nil {
		return j.priceSyncFailed(ctx, item, registrar, err, log)
	}

	summary, err := j.fees.SyncPrices(ctx, registrar.ID, quotes)
	if err != nil {
		return j.priceSyncFailed(ctx, item, registrar, err, log)
	}

	if client.Capabilities().DeferredPricing {
		if err := j.dispatchCategories(ctx, item, registrar.ID, client.PriceCategories()); err != nil {
			return j.priceSyncFailed(ctx, item, registrar, err, log)
		}
	}

	log.Info("registrar.prices.synced",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("skipped", summary.Skipped),
	)
	j.metrics.RecordPriceSync(ctx, registrar.Label(), metrics.OutcomeOK)
	notify(fmt.Sprintf("%s: %d new TLD(s), %d updated", registrar.Name, summary.Created, summary.Updated), notification.LevelSuccess)
	return nil
}

func (j *Jobs) priceSyncFailed(ctx context.Context, item queue.WorkItem, registrar *registrardomain.Registrar, err error, log *zap.Logger) error {
	if item.WillRetry(err) {
		return err
	}
	log.Error("registrar.prices.failed", zap.Error(err))
	j.metrics.RecordPriceSync(ctx, registrar.Label(), metrics.OutcomeError)
	j.notifier.Notify(ctx, item.UserID, notification.TitleRegistrarPriceSync,
		fmt.Sprintf("Failed to sync %s: %s", registrar.Name, err), notification.LevelDanger)
	return nil
}

// dispatchCategories queues the category phases as one batch whose completion queues the
// backfill.
func (j *Jobs) dispatchCategories(ctx context.Context, item queue.WorkItem, registrarID int64, categories []string) error {
	if len(categories) == 0 {
		return j.queue.Enqueue(ctx, queue.BackfillRegistrarFees(registrarID, item.UserID))
	}
	batchID := queue.NewBatchID()
	if err := j.batches.Open(ctx, batchID, len(categories), queue.BackfillRegistrarFees(registrarID, item.UserID)); err != nil {
		return err
	}
	items := make([]queue.WorkItem, 0, len(categories))
	for _, category := range categories {
		phase := queue.SyncRegistrarTypePrices(registrarID, category, item.UserID)
		phase.BatchID = batchID
		items = append(items, phase)
	}
	if err := j.queue.Enqueue(ctx, items...); err != nil {
		return err
	}
	j.syncMetrics.AddEnqueued(string(queue.KindSyncRegistrarTypePrices), len(items))
	return nil
}

// SyncRegistrarTypePrices runs one deferred category phase. Missing preconditions are
// silent and failures are only logged.
func (j *Jobs) SyncRegistrarTypePrices(ctx context.Context, item queue.WorkItem) error {
	log := logger.WithContext(ctx, j.log).With(
		zap.Int64("registrar_id", item.RegistrarID),
		zap.String("category", item.Category),
	)

	registrar, err := j.registrars.Get(ctx, item.RegistrarID)
	if err != nil {
		log.Warn("registrar.type_prices.skipped", zap.Error(err))
		return nil
	}
	if !registrar.HasAPISupport() {
		return nil
	}
	resolved, err := j.registrars.Resolve(ctx, registrar.ID)
	if err != nil || !resolved.Client.IsConfigured() || !resolved.Client.Capabilities().DeferredPricing {
		return nil
	}

	start := time.Now()
	quotes, err := resolved.Client.GetPricesByType(ctx, item.Category)
	j.syncMetrics.ObserveRegistrarCall(registrar.Label(), "get_prices_by_type", time.Since(start), err)
	if err != nil {
		if item.WillRetry(err) {
			return err
		}
		log.Error("registrar.type_prices.failed", zap.Error(err))
		return nil
	}
	summary, err := j.fees.SyncTypePrices(ctx, registrar.ID, quotes)
	if err != nil {
		log.Error("registrar.type_prices.failed", zap.Error(err))
		return nil
	}
	log.Info("registrar.type_prices.synced",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
	)
	return nil
}

// BackfillRegistrarFees copies register prices into missing renew and transfer prices.
func (j *Jobs) BackfillRegistrarFees(ctx context.Context, item queue.WorkItem) error {
	changed, err := j.fees.Backfill(ctx, item.RegistrarID)
	if err != nil {
		return err
	}
	logger.WithContext(ctx, j.log).Info("registrar.fees.backfilled",
		zap.Int64("registrar_id", item.RegistrarID),
		zap.Int("changed", changed),
	)
	return nil
}
