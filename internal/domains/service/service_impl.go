package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/domains/domain"
	"github.com/smallbiznis/domainledger/internal/facts"
	feedomain "github.com/smallbiznis/domainledger/internal/fee/domain"
	"github.com/smallbiznis/domainledger/internal/notification"
	obscontext "github.com/smallbiznis/domainledger/internal/observability/context"
	"github.com/smallbiznis/domainledger/internal/observability/logger"
	"github.com/smallbiznis/domainledger/internal/queue"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
	"github.com/smallbiznis/domainledger/pkg/db"
	"github.com/smallbiznis/domainledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Fees       feedomain.Service
	Registrars registrardomain.Service
	Queue      queue.Enqueuer
	Notifier   notification.Notifier
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	fees       feedomain.Service
	registrars registrardomain.Service
	queue      queue.Enqueuer
	notifier   notification.Notifier
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("domain.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		fees:       p.Fees,
		registrars: p.Registrars,
		queue:      p.Queue,
		notifier:   p.Notifier,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Domain, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrDomainNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	if size > 250 {
		size = 250
	}
	req.PageSize = size

	items, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	items, info := pagination.BuildCursorPageInfo(items, size, func(d *domain.Domain) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: strconv.FormatInt(d.ID, 10)})
		return token
	})
	return &domain.ListResponse{Domains: items, PageInfo: info}, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Domain, error) {
	name, err := validName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.RegistrarID != nil {
		if _, err := s.registrars.Get(ctx, *req.RegistrarID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	item := domain.Domain{
		ID:          s.genID.Generate().Int64(),
		Name:        name,
		RegistrarID: req.RegistrarID,
		SyncStatus:  domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.resolveFee(ctx, &item); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, s.db, &item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, err
	}

	s.enqueueSync(ctx, item.ID)
	return &item, nil
}

func (s *Service) Update(ctx context.Context, id int64, req domain.UpdateRequest) (*domain.Domain, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	nameChanged := false
	if req.Name != nil {
		name, err := validName(*req.Name)
		if err != nil {
			return nil, err
		}
		nameChanged = name != item.Name
		item.Name = name
	}
	registrarChanged := false
	if req.RegistrarID != nil && (item.RegistrarID == nil || *item.RegistrarID != *req.RegistrarID) {
		if _, err := s.registrars.Get(ctx, *req.RegistrarID); err != nil {
			return nil, err
		}
		item.RegistrarID = req.RegistrarID
		registrarChanged = true
	}
	if !nameChanged && !registrarChanged {
		return item, nil
	}

	if err := s.resolveFee(ctx, item); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, s.db, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, err
	}
	if nameChanged {
		s.enqueueSync(ctx, item.ID)
	}
	return item, nil
}

func (s *Service) RequestSync(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, queue.SyncDomain(id, obscontext.UserIDFromContext(ctx)))
}

func (s *Service) ImportRoster(ctx context.Context, registrarID int64, roster []facts.FactSet) (domain.RosterResult, error) {
	var result domain.RosterResult
	for _, entry := range roster {
		name := domain.NormalizeName(entry.Name)
		if name == "" {
			continue
		}
		item, action, err := s.importOne(ctx, registrarID, name, entry)
		if err != nil {
			return result, fmt.Errorf("import %s: %w", name, err)
		}
		switch action {
		case importCreated:
			result.Created++
		case importUpdated:
			result.Updated++
		default:
			result.Unchanged++
		}
		result.DomainIDs = append(result.DomainIDs, item.ID)
	}
	return result, nil
}

type importAction int

const (
	importUnchanged importAction = iota
	importCreated
	importUpdated
)

func (s *Service) importOne(ctx context.Context, registrarID int64, name string, entry facts.FactSet) (*domain.Domain, importAction, error) {
	item, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, importUnchanged, err
	}

	if item == nil {
		now := s.clock.Now()
		item = &domain.Domain{
			ID:          s.genID.Generate().Int64(),
			Name:        name,
			RegistrarID: &registrarID,
			SyncStatus:  domain.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		item.Fill(entry)
		if err := s.resolveFee(ctx, item); err != nil {
			return nil, importUnchanged, err
		}
		err := s.repo.Insert(ctx, s.db, item)
		if err == nil {
			return item, importCreated, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, importUnchanged, err
		}
		// Lost a race with a concurrent import; merge into the stored row instead.
		item, err = s.repo.FindByName(ctx, s.db, name)
		if err != nil {
			return nil, importUnchanged, err
		}
		if item == nil {
			return nil, importUnchanged, domain.ErrDomainNotFound
		}
	}

	if !item.Fill(entry) {
		return item, importUnchanged, nil
	}
	if err := s.repo.Save(ctx, s.db, item); err != nil {
		return nil, importUnchanged, err
	}
	return item, importUpdated, nil
}

func (s *Service) ListResyncCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListResyncCandidates(ctx, s.db, staleBefore.UTC(), limit)
}

// resolveFee points the domain at its registrar's fee row, trying the co-TLD before the
// TLD. A domain without a registrar has no fee.
func (s *Service) resolveFee(ctx context.Context, item *domain.Domain) error {
	item.FeeID = nil
	if item.RegistrarID == nil {
		return nil
	}
	registrar, err := s.registrars.Get(ctx, *item.RegistrarID)
	if err != nil {
		if errors.Is(err, registrardomain.ErrRegistrarNotFound) {
			return nil
		}
		return err
	}

	coTLD, tld := domain.FeeCandidates(item.Name)
	if tld == "" {
		return nil
	}
	if coTLD != "" {
		id, err := s.fees.FindID(ctx, registrar.ID, coTLD)
		if err != nil {
			return err
		}
		if id != nil {
			item.FeeID = id
			return nil
		}
	}
	id, err := s.fees.FindID(ctx, registrar.ID, tld)
	if err != nil {
		return err
	}
	item.FeeID = id

	if id == nil && coTLD != "" {
		s.notifier.Notify(ctx, obscontext.UserIDFromContext(ctx),
			notification.TitleFeeNotFound,
			fmt.Sprintf("%s has no fee for .%s used by %s.", registrar.Name, coTLD, item.Name),
			notification.LevelDanger,
		)
	}
	return nil
}

func (s *Service) enqueueSync(ctx context.Context, id int64) {
	if err := s.queue.Enqueue(ctx, queue.SyncDomain(id, obscontext.UserIDFromContext(ctx))); err != nil {
		logger.WithContext(ctx, s.log).Error("domain sync enqueue failed", zap.Int64("domain_id", id), zap.Error(err))
	}
}

func validName(raw string) (string, error) {
	name := domain.NormalizeName(raw)
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return "", domain.ErrInvalidName
	}
	for _, label := range labels {
		if label == "" || strings.ContainsAny(label, " /\\@:") {
			return "", domain.ErrInvalidName
		}
	}
	return name, nil
}
