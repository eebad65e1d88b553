package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"gorm.io/gorm"
)

const (
	JobReasonDeadlineExceeded     = "deadline_exceeded"
	JobReasonDBLockTimeout        = "db_lock_timeout"
	JobReasonSerializationFailure = "serialization_failure"
	JobReasonUniqueViolation      = "unique_violation"
	JobReasonConfiguration        = "configuration"
	JobReasonTransientFetch       = "transient_fetch"
	JobReasonUpstreamFormat       = "upstream_format"
	JobReasonNotFound             = "not_found"
	JobReasonUnknown              = "unknown"
)

const (
	FetchTierDirect   = "direct"
	FetchTierRendered = "rendered"
	FetchTierStatic   = "rendered_static"

	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeEmpty = "empty"
)

const (
	FeeActionCreated   = "created"
	FeeActionUpdated   = "updated"
	FeeActionUnchanged = "unchanged"
	FeeActionSkipped   = "skipped"
)

// SyncMetrics captures pipeline health: aggregator stages, fetch tiers, fee upserts,
// registrar calls, queue items and scheduler jobs.
type SyncMetrics struct {
	stageOutcomes     *prometheus.CounterVec
	fetchAttempts     *prometheus.CounterVec
	feeUpserts        *prometheus.CounterVec
	registrarCalls    *prometheus.CounterVec
	registrarDuration *prometheus.HistogramVec
	queueItems        *prometheus.CounterVec
	queueDuration     *prometheus.HistogramVec
	jobRuns           *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
	jobTimeouts       *prometheus.CounterVec
	jobErrors         *prometheus.CounterVec
	jobEnqueued       *prometheus.CounterVec
	runLoopLag        prometheus.Observer
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the process-wide sync metrics registered on the default registerer.
func Sync() *SyncMetrics {
	return SyncFromConfig(Config{})
}

// SyncFromConfig returns the singleton, labelling it with service and env on first use.
func SyncFromConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the singleton.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

// NewSyncMetricsForTest registers a fresh set on registerer.
func NewSyncMetricsForTest(registerer prometheus.Registerer) *SyncMetrics {
	return newSyncMetrics(registerer, Config{ServiceName: "domainledger", Environment: "test"})
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "domainledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
	latencyBuckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300}

	m := &SyncMetrics{
		stageOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domainledger_domain_sync_stage_total",
			Help:        "Domain sync stage outcomes.",
			ConstLabels: constLabels,
		}, []string{"stage", "outcome"}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domainledger_fetch_attempts_total",
			Help:        "Content fetch attempts by tier and outcome.",
			ConstLabels: constLabels,
		}, []string{"tier", "outcome"}),
		feeUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domainledger_fee_upserts_total",
			Help:        "Registrar fee rows touched by reconciliation.",
			ConstLabels: constLabels,
		}, []string{"registrar", "action"}),
		registrarCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domainledger_registrar_calls_total",
			Help:        "Registrar client operations by outcome.",
			ConstLabels: constLabels,
		}, []string{"registrar", "operation", "outcome"}),
		registrarDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "domainledger_registrar_call_duration_seconds",
			Help:        "Registrar client operation latency.",
			Buckets:     latencyBuckets,
			ConstLabels: constLabels,
		}, []string{"registrar", "operation"}),
		queueItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domainledger_queue_items_total",
			Help:        "Processed work items by kind and outcome.",
			ConstLabels: constLabels,
		}, []string{"kind", "outcome"}),
		queueDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "domainledger_queue_item_duration_seconds",
			Help:        "Work item processing latency.",
			Buckets:     latencyBuckets,
			ConstLabels: constLabels,
		}, []string{"kind"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domainledger_scheduler_job_runs_total",
			Help:        "Scheduler job runs by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "domainledger_scheduler_job_duration_seconds",
			Help:        "Scheduler job latency.",
			Buckets:     latencyBuckets,
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domainledger_scheduler_job_timeouts_total",
			Help:        "Scheduler job soft timeouts.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domainledger_scheduler_job_errors_total",
			Help:        "Scheduler job errors by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		jobEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domainledger_scheduler_enqueued_total",
			Help:        "Work items enqueued by scheduler jobs.",
			ConstLabels: constLabels,
		}, []string{"job"}),
	}
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "domainledger_scheduler_runloop_lag_seconds",
		Help:        "Scheduler run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	})
	m.runLoopLag = lag

	registerer.MustRegister(
		m.stageOutcomes,
		m.fetchAttempts,
		m.feeUpserts,
		m.registrarCalls,
		m.registrarDuration,
		m.queueItems,
		m.queueDuration,
		m.jobRuns,
		m.jobDuration,
		m.jobTimeouts,
		m.jobErrors,
		m.jobEnqueued,
		lag,
	)
	return m
}

func (m *SyncMetrics) IncStage(stage, outcome string) {
	if m == nil {
		return
	}
	m.stageOutcomes.WithLabelValues(stage, outcome).Inc()
}

func (m *SyncMetrics) IncFetchAttempt(tier, outcome string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(tier, outcome).Inc()
}

func (m *SyncMetrics) AddFeeUpserts(registrar, action string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.feeUpserts.WithLabelValues(registrar, action).Add(float64(count))
}

// ObserveRegistrarCall records outcome and latency of one registrar client operation.
func (m *SyncMetrics) ObserveRegistrarCall(registrar, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = ClassifyJobReason(err)
	}
	m.registrarCalls.WithLabelValues(registrar, operation, outcome).Inc()
	m.registrarDuration.WithLabelValues(registrar, operation).Observe(duration.Seconds())
}

func (m *SyncMetrics) ObserveQueueItem(kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = ClassifyJobReason(err)
	}
	m.queueItems.WithLabelValues(kind, outcome).Inc()
	m.queueDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *SyncMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SyncMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *SyncMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *SyncMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
}

func (m *SyncMetrics) AddEnqueued(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.jobEnqueued.WithLabelValues(job).Add(float64(count))
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *SyncMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.runLoopLag.Observe(duration.Seconds())
}

// ClassifyJobReason maps errors to low-cardinality metric reasons.
func ClassifyJobReason(err error) string {
	if err == nil {
		return JobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return JobReasonDeadlineExceeded
	}
	switch syncerr.KindOf(err) {
	case syncerr.KindConfiguration:
		return JobReasonConfiguration
	case syncerr.KindTransientFetch:
		return JobReasonTransientFetch
	case syncerr.KindUpstreamFormat:
		return JobReasonUpstreamFormat
	case syncerr.KindNotFound:
		return JobReasonNotFound
	}
	if hasPGCode(err, "55P03") {
		return JobReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return JobReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return JobReasonUniqueViolation
	}
	return JobReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
