// Package aggregator gathers domain facts from the registrar integration, RDAP and WHOIS,
// in that order, stopping as soon as the facts are complete.
package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/domains/domain"
	"github.com/smallbiznis/domainledger/internal/facts"
	"github.com/smallbiznis/domainledger/internal/notification"
	"github.com/smallbiznis/domainledger/internal/observability/logger"
	"github.com/smallbiznis/domainledger/internal/observability/metrics"
	"github.com/smallbiznis/domainledger/internal/rdap"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	stageIntegration = "integration"
	stageRDAP        = "rdap"
	stageWhois       = "whois"
)

type RDAPLookup interface {
	Lookup(ctx context.Context, name string) (rdap.Result, error)
}

type WhoisLookup interface {
	Lookup(ctx context.Context, name string) (facts.FactSet, error)
}

// DomainLocker hands out per-domain leases.
type DomainLocker interface {
	LockDomain(ctx context.Context, domainID int64) (release func(), ok bool, err error)
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	Registrars  registrardomain.Service
	RDAP        RDAPLookup
	Whois       WhoisLookup
	Locker      DomainLocker
	Notifier    notification.Notifier
	Metrics     *metrics.Metrics     `optional:"true"`
	SyncMetrics *metrics.SyncMetrics `optional:"true"`
}

type Aggregator struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	registrars  registrardomain.Service
	rdap        RDAPLookup
	whois       WhoisLookup
	locker      DomainLocker
	notifier    notification.Notifier
	metrics     *metrics.Metrics
	syncMetrics *metrics.SyncMetrics
}

func New(p Params) *Aggregator {
	return &Aggregator{
		db:          p.DB,
		log:         p.Log.Named("domain.aggregator"),
		clock:       p.Clock,
		repo:        p.Repo,
		registrars:  p.Registrars,
		rdap:        p.RDAP,
		whois:       p.Whois,
		locker:      p.Locker,
		notifier:    p.Notifier,
		metrics:     p.Metrics,
		syncMetrics: p.SyncMetrics,
	}
}

// run carries the state of one sync.
type run struct {
	item   *domain.Domain
	userID string
	acc    facts.FactSet
	log    *zap.Logger
}

// Sync gathers facts for one domain. Stage failures end up in the domain's sync status and
// in a notification; only storage failures are returned.
func (a *Aggregator) Sync(ctx context.Context, domainID int64, userID string) error {
	log := logger.WithContext(ctx, a.log).With(zap.Int64("domain_id", domainID))

	release, ok, err := a.locker.LockDomain(ctx, domainID)
	if err != nil {
		return err
	}
	if !ok {
		log.Info("domain.sync.skipped.locked")
		return nil
	}
	defer release()

	item, err := a.repo.FindByID(ctx, a.db, domainID)
	if err != nil {
		return err
	}
	if item == nil {
		a.notify(ctx, userID, "Domain not found", notification.LevelDanger)
		return nil
	}

	r := &run{
		item:   item,
		userID: userID,
		acc:    facts.FactSet{Name: item.Name},
		log:    log.With(zap.String("domain", item.Name)),
	}

	done, err := a.integrationStage(ctx, r)
	if err != nil || done {
		return err
	}

	if err := a.setStatus(ctx, r, domain.StatusSyncRDAP); err != nil {
		return err
	}
	res, err := a.rdap.Lookup(ctx, item.Name)
	switch {
	case err != nil:
		a.stage(stageRDAP, metrics.OutcomeError)
		r.log.Warn("domain.sync.stage.failed", zap.String("stage", stageRDAP), zap.Error(err))
		if err := a.setStatus(ctx, r, domain.StatusFailedSyncRDAP); err != nil {
			return err
		}
		a.notify(ctx, userID, fmt.Sprintf("Failed to sync RDAP for %s: %s", item.Name, err), notification.LevelWarning)
	case !res.Found:
		a.stage(stageRDAP, metrics.OutcomeEmpty)
		r.log.Debug("domain.sync.rdap.unavailable")
	default:
		a.stage(stageRDAP, metrics.OutcomeOK)
		r.acc.Merge(res.Facts)
	}
	if r.acc.IsComplete() {
		return a.finalize(ctx, r)
	}

	if err := a.setStatus(ctx, r, domain.StatusSyncWhois); err != nil {
		return err
	}
	fs, err := a.whois.Lookup(ctx, item.Name)
	if err != nil {
		a.stage(stageWhois, metrics.OutcomeError)
		r.log.Warn("domain.sync.stage.failed", zap.String("stage", stageWhois), zap.Error(err))
		if err := a.setStatus(ctx, r, domain.StatusFailedSyncWhois); err != nil {
			return err
		}
		a.recordOutcome(ctx, domain.StatusFailedSyncWhois)
		a.notify(ctx, userID, fmt.Sprintf("Failed to sync WHOIS for %s: %s", item.Name, err), notification.LevelDanger)
		return nil
	}
	a.stage(stageWhois, metrics.OutcomeOK)
	r.acc.Merge(fs)
	return a.finalize(ctx, r)
}

// integrationStage asks the registrar for the domain when the registrar has an API with
// single-domain lookup. done is true when the sync ended in this stage.
func (a *Aggregator) integrationStage(ctx context.Context, r *run) (done bool, err error) {
	if r.item.RegistrarID == nil {
		return false, nil
	}
	registrar, err := a.registrars.Get(ctx, *r.item.RegistrarID)
	if err != nil {
		if errors.Is(err, registrardomain.ErrRegistrarNotFound) {
			return false, nil
		}
		return false, err
	}
	if !registrar.HasAPISupport() {
		return false, nil
	}

	if err := a.setStatus(ctx, r, domain.StatusSyncIntegration); err != nil {
		return false, err
	}
	log := logger.WithRegistrar(r.log, registrar.ID, registrar.Label())

	fs, err := a.lookupIntegration(ctx, registrar.ID, r.item.Name)
	switch {
	case syncerr.IsKind(err, syncerr.KindConfiguration), errors.Is(err, registrardomain.ErrClientNotRegistered):
		a.stage(stageIntegration, metrics.OutcomeEmpty)
		log.Warn("domain.sync.integration.skipped", zap.Error(err))
		return false, nil
	case err != nil:
		a.stage(stageIntegration, metrics.OutcomeError)
		log.Error("domain.sync.stage.failed", zap.String("stage", stageIntegration), zap.Error(err))
		if err := a.setStatus(ctx, r, domain.StatusFailedSyncIntegration); err != nil {
			return true, err
		}
		a.recordOutcome(ctx, domain.StatusFailedSyncIntegration)
		a.notify(ctx, r.userID, fmt.Sprintf("Failed to sync integration for %s: %s", r.item.Name, err), notification.LevelDanger)
		return true, nil
	}

	if fs == nil {
		a.stage(stageIntegration, metrics.OutcomeEmpty)
	} else {
		a.stage(stageIntegration, metrics.OutcomeOK)
		r.acc.Merge(*fs)
	}
	if r.acc.IsComplete() {
		return true, a.finalize(ctx, r)
	}
	return false, nil
}

func (a *Aggregator) lookupIntegration(ctx context.Context, registrarID int64, name string) (*facts.FactSet, error) {
	resolved, err := a.registrars.Resolve(ctx, registrarID)
	if err != nil {
		return nil, err
	}
	client := resolved.Client
	if !client.Capabilities().DomainLookup {
		return nil, nil
	}
	if !client.IsConfigured() {
		return nil, syncerr.Configuration(client.Code().String(), "registrar API is not configured")
	}
	return client.GetDomain(ctx, name)
}

// finalize stores the gathered facts. Lock and privacy default to true when no source
// reported them; other unknown facts keep their stored values.
func (a *Aggregator) finalize(ctx context.Context, r *run) error {
	r.item.Fill(r.acc)
	if r.acc.SecurityLock == nil {
		r.item.SecurityLock = facts.Bool(true)
	}
	if r.acc.WhoisPrivacy == nil {
		r.item.WhoisPrivacy = facts.Bool(true)
	}
	now := a.clock.Now()
	r.item.SyncStatus = domain.StatusCompleted
	r.item.LastSyncedAt = &now
	if err := a.repo.SaveFacts(ctx, a.db, r.item, now); err != nil {
		return err
	}

	r.log.Info("domain.sync.completed", zap.Int("nameservers", len(r.item.Nameservers)))
	a.recordOutcome(ctx, domain.StatusCompleted)
	a.notify(ctx, r.userID, fmt.Sprintf("Synced %s successfully.", r.item.Name), notification.LevelSuccess)
	return nil
}

func (a *Aggregator) setStatus(ctx context.Context, r *run, status domain.SyncStatus) error {
	if err := a.repo.UpdateStatus(ctx, a.db, r.item.ID, status); err != nil {
		return fmt.Errorf("set sync status %s: %w", status, err)
	}
	r.item.SyncStatus = status
	return nil
}

func (a *Aggregator) notify(ctx context.Context, userID, body string, level notification.Level) {
	a.notifier.Notify(ctx, userID, notification.TitleDomainSync, body, level)
}

func (a *Aggregator) stage(stage, outcome string) {
	a.syncMetrics.IncStage(stage, outcome)
}

func (a *Aggregator) recordOutcome(ctx context.Context, status domain.SyncStatus) {
	a.metrics.RecordDomainSync(ctx, status.String())
}
