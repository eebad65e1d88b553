package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/fee/domain"
	"github.com/smallbiznis/domainledger/internal/observability/logger"
	"github.com/smallbiznis/domainledger/internal/observability/metrics"
	"github.com/smallbiznis/domainledger/internal/pricing"
	"github.com/smallbiznis/domainledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const backfillChunkSize = 100

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock          `optional:"true"`
	Metrics *metrics.SyncMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	metrics *metrics.SyncMetrics
}

func New(p Params) domain.Service {
	if p.Clock == nil {
		p.Clock = clock.SystemClock{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("fee.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

type createRule func(payload *pricing.Quote) bool

func createAlways(*pricing.Quote) bool { return true }

// createFromRenew only accepts rows that carry a positive renew price and seeds register
// from it.
func createFromRenew(payload *pricing.Quote) bool {
	if payload.Renew == nil || *payload.Renew <= 0 {
		return false
	}
	if payload.Register == nil {
		payload.Register = pricing.Ptr(*payload.Renew)
	}
	return true
}

func (s *Service) SyncPrices(ctx context.Context, registrarID int64, quotes []pricing.Quote) (domain.Summary, error) {
	return s.reconcile(ctx, registrarID, quotes, createAlways)
}

func (s *Service) SyncTypePrices(ctx context.Context, registrarID int64, quotes []pricing.Quote) (domain.Summary, error) {
	return s.reconcile(ctx, registrarID, quotes, createFromRenew)
}

func (s *Service) reconcile(ctx context.Context, registrarID int64, quotes []pricing.Quote, canCreate createRule) (domain.Summary, error) {
	var summary domain.Summary
	label := strconv.FormatInt(registrarID, 10)
	defer func() {
		s.metrics.AddFeeUpserts(label, metrics.FeeActionCreated, summary.Created)
		s.metrics.AddFeeUpserts(label, metrics.FeeActionUpdated, summary.Updated)
		s.metrics.AddFeeUpserts(label, metrics.FeeActionUnchanged, summary.Unchanged)
		s.metrics.AddFeeUpserts(label, metrics.FeeActionSkipped, summary.Skipped)
	}()

	for _, quote := range quotes {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		payload := domain.NormalizePayload(quote)
		if payload.TLD == "" {
			summary.Skipped++
			continue
		}

		existing, err := s.repo.FindByRegistrarTLD(ctx, s.db, registrarID, payload.TLD)
		if err != nil {
			return summary, err
		}
		if existing == nil {
			if !canCreate(&payload) {
				summary.Skipped++
				continue
			}
			created, err := s.create(ctx, registrarID, payload)
			if err != nil {
				return summary, err
			}
			if created {
				summary.Created++
				continue
			}
			// Another worker inserted the row first; reconcile against it.
			existing, err = s.repo.FindByRegistrarTLD(ctx, s.db, registrarID, payload.TLD)
			if err != nil {
				return summary, err
			}
			if existing == nil {
				summary.Skipped++
				continue
			}
		}

		if !domain.HasChanges(*existing, payload) {
			summary.Unchanged++
			continue
		}
		columns := domain.ApplyPayload(existing, payload)
		if err := s.repo.UpdateColumns(ctx, s.db, existing.ID, columns, s.clock.Now()); err != nil {
			return summary, err
		}
		summary.Updated++
	}

	logger.WithContext(ctx, s.log).Debug("fees reconciled",
		zap.Int64("registrar_id", registrarID),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// create inserts the row and reports false when the unique (registrar, tld) key already
// exists.
func (s *Service) create(ctx context.Context, registrarID int64, payload pricing.Quote) (bool, error) {
	now := s.clock.Now()
	fee := domain.Fee{
		ID:          s.genID.Generate().Int64(),
		RegistrarID: registrarID,
		TLD:         payload.TLD,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	domain.ApplyPayload(&fee, payload)
	if err := s.repo.Insert(ctx, s.db, &fee); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) Backfill(ctx context.Context, registrarID int64) (int, error) {
	var (
		afterID int64
		changed int
	)
	for {
		fees, err := s.repo.ListChunk(ctx, s.db, registrarID, afterID, backfillChunkSize)
		if err != nil {
			return changed, err
		}
		if len(fees) == 0 {
			return changed, nil
		}
		for i := range fees {
			fee := &fees[i]
			afterID = fee.ID
			columns := domain.BackfillFromRegister(fee)
			if len(columns) == 0 {
				continue
			}
			if err := s.repo.UpdateColumns(ctx, s.db, fee.ID, columns, s.clock.Now()); err != nil {
				return changed, err
			}
			changed++
		}
		if len(fees) < backfillChunkSize {
			return changed, nil
		}
	}
}

func (s *Service) FindID(ctx context.Context, registrarID int64, tld string) (*int64, error) {
	tld = pricing.NormalizeTLD(tld)
	if registrarID == 0 || tld == "" {
		return nil, nil
	}
	fee, err := s.repo.FindByRegistrarTLD(ctx, s.db, registrarID, tld)
	if err != nil || fee == nil {
		return nil, err
	}
	id := fee.ID
	return &id, nil
}

func (s *Service) List(ctx context.Context, registrarID int64) ([]domain.Fee, error) {
	return s.repo.ListByRegistrar(ctx, s.db, registrarID)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Fee, error) {
	return s.repo.ListAll(ctx, s.db)
}
