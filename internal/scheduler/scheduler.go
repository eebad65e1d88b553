// Package scheduler periodically enqueues sync work: the RDAP directory refresh, registrar
// price and roster syncs, and re-syncs of domains that never completed or went stale.
// It only produces work items; the workers do the syncing.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/config"
	obsmetrics "github.com/smallbiznis/domainledger/internal/observability/metrics"
	"github.com/smallbiznis/domainledger/internal/queue"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobRdapDirectory   = "rdap_directory"
	JobRegistrarPrices = "registrar_prices"
	JobRegistrarRoster = "registrar_roster"
	JobDomainResync    = "domain_resync"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type RegistrarLister interface {
	ListWithAPISupport(ctx context.Context) ([]registrardomain.Registrar, error)
}

type ResyncLister interface {
	ListResyncCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]int64, error)
}

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Registrars  RegistrarLister
	Domains     ResyncLister
	Queue       queue.Enqueuer
	SyncConfig  *config.SyncConfigHolder `optional:"true"`
	SyncMetrics *obsmetrics.SyncMetrics  `optional:"true"`
	Config      Config                   `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	genID      *snowflake.Node
	registrars RegistrarLister
	domains    ResyncLister
	queue      queue.Enqueuer
	syncConfig *config.SyncConfigHolder
	metrics    *obsmetrics.SyncMetrics

	mu      sync.Mutex
	lastRun map[string]time.Time
}

type scheduledJob struct {
	name     string
	interval time.Duration
	run      func(context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil || p.Registrars == nil || p.Domains == nil || p.Queue == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		genID:      p.GenID,
		registrars: p.Registrars,
		domains:    p.Domains,
		queue:      p.Queue,
		syncConfig: p.SyncConfig,
		metrics:    p.SyncMetrics,
		lastRun:    make(map[string]time.Time),
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		s.markRun(name, start)
		return nil
	}

	// deadline is a soft timeout; the job stays due and runs again next tick
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job whose interval has elapsed since its last success.
func (s *Scheduler) RunOnce(parent context.Context) error {
	intervals := s.syncConfig.Get().Scheduler
	jobs := []scheduledJob{
		{JobRdapDirectory, intervals.RdapDirectory, s.RdapDirectoryJob},
		{JobRegistrarPrices, intervals.RegistrarPrices, s.RegistrarPricesJob},
		{JobRegistrarRoster, intervals.RegistrarRoster, s.RegistrarRosterJob},
		{JobDomainResync, intervals.DomainResync, s.DomainResyncJob},
	}

	now := s.clock.Now()
	var err error
	for _, job := range jobs {
		if !s.isJobEnabled(job.name) || !s.isDue(job.name, job.interval, now) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.name, s.cfg.JobTimeout, job.run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()

	for {
		if runLag := s.clock.Now().Sub(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) isDue(jobName string, interval time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastRun[jobName]
	return !ok || now.Sub(last) >= interval
}

func (s *Scheduler) markRun(jobName string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[jobName] = at
}

// RdapDirectoryJob queues a refresh of the IANA RDAP bootstrap directory.
func (s *Scheduler) RdapDirectoryJob(ctx context.Context) error {
	if err := s.queue.Enqueue(ctx, queue.SyncRdaps("")); err != nil {
		s.logEnqueueError(ctx, JobRdapDirectory, 0, err)
		return err
	}
	s.enqueued(ctx, JobRdapDirectory, 1)
	return nil
}

// RegistrarPricesJob queues a price sync for every registrar with API support.
func (s *Scheduler) RegistrarPricesJob(ctx context.Context) error {
	return s.perRegistrar(ctx, JobRegistrarPrices, func(id int64) queue.WorkItem {
		return queue.SyncRegistrarPrices(id, "")
	})
}

// RegistrarRosterJob queues a roster import for every registrar with API support.
// Registrars whose client cannot list domains are skipped by the handler.
func (s *Scheduler) RegistrarRosterJob(ctx context.Context) error {
	return s.perRegistrar(ctx, JobRegistrarRoster, func(id int64) queue.WorkItem {
		return queue.SyncRegistrarDomains(id, "")
	})
}

// DomainResyncJob queues a sync for domains that never completed or went stale.
func (s *Scheduler) DomainResyncJob(ctx context.Context) error {
	intervals := s.syncConfig.Get().Scheduler
	staleBefore := s.clock.Now().Add(-intervals.StaleAfter)

	ids, err := s.domains.ListResyncCandidates(ctx, staleBefore, intervals.BatchSize)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	items := make([]queue.WorkItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, queue.SyncDomain(id, ""))
	}
	if err := s.queue.Enqueue(ctx, items...); err != nil {
		s.logEnqueueError(ctx, JobDomainResync, 0, err)
		return err
	}
	s.enqueued(ctx, JobDomainResync, len(items))
	return nil
}

// perRegistrar enqueues one item per registrar so a failed push does not hold back the rest.
func (s *Scheduler) perRegistrar(ctx context.Context, job string, build func(id int64) queue.WorkItem) error {
	registrars, err := s.registrars.ListWithAPISupport(ctx)
	if err != nil {
		return err
	}

	var errs error
	count := 0
	for _, r := range registrars {
		if err := s.queue.Enqueue(ctx, build(r.ID)); err != nil {
			s.logEnqueueError(ctx, job, r.ID, err)
			errs = errors.Join(errs, err)
			continue
		}
		count++
	}
	s.enqueued(ctx, job, count)
	return errs
}

func (s *Scheduler) enqueued(ctx context.Context, job string, count int) {
	jobRunFromContext(ctx).AddProcessed(count)
	s.metrics.AddEnqueued(job, count)
}
