package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/observability/logger"
	"github.com/smallbiznis/domainledger/internal/registrar/clients"
	"github.com/smallbiznis/domainledger/internal/registrar/credentials"
	"github.com/smallbiznis/domainledger/internal/registrar/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidName = errors.New("invalid_registrar_name")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Codec    *credentials.Codec
	Registry *clients.Registry
	Clock    clock.Clock `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	codec    *credentials.Codec
	registry *clients.Registry
	clock    clock.Clock
}

func New(p Params) domain.Service {
	if p.Clock == nil {
		p.Clock = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("registrar.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		codec:    p.Codec,
		registry: p.Registry,
		clock:    p.Clock,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Registrar, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrRegistrarNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Registrar, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) ListWithAPISupport(ctx context.Context) ([]domain.Registrar, error) {
	return s.repo.ListWithAPISupport(ctx, s.db)
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Registrar, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	now := s.clock.Now()
	item := domain.Registrar{
		ID:         s.genID.Generate().Int64(),
		Name:       name,
		Slug:       slug.Make(name),
		APISupport: req.APISupport,
		Currency:   currency,
		Notes:      strings.TrimSpace(req.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Resolve builds the registrar's client. Credentials that cannot be opened are logged and
// replaced by an empty bag, which leaves the client unconfigured.
func (s *Service) Resolve(ctx context.Context, id int64) (*domain.Resolved, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.HasAPISupport() {
		return nil, domain.ErrNoAPISupport
	}

	creds, err := s.codec.Open(item.APISettings)
	if err != nil {
		logger.WithRegistrar(logger.WithContext(ctx, s.log), item.ID, item.Label()).
			Warn("registrar credentials unreadable, treating as unconfigured", zap.Error(err))
		creds = domain.Credentials{}
	}

	client, err := s.registry.Build(item.APISupport, creds)
	if err != nil {
		return nil, err
	}
	return &domain.Resolved{Registrar: *item, Client: client}, nil
}

func (s *Service) SetCredentials(ctx context.Context, id int64, creds domain.Credentials) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	sealed, err := s.codec.Seal(creds)
	if err != nil {
		return err
	}
	return s.repo.UpdateAPISettings(ctx, s.db, id, sealed, s.clock.Now())
}

// ValidateCredentials asks the registrar whether the stored credentials work. Clients
// without a credential check are reported as valid.
func (s *Service) ValidateCredentials(ctx context.Context, id int64) error {
	resolved, err := s.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if !resolved.Client.Capabilities().CredentialCheck {
		return nil
	}
	if err := resolved.Client.ValidateCredentials(ctx); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return err
		}
		return errors.Join(domain.ErrInvalidCredentials, err)
	}
	return nil
}

func (s *Service) TouchLastSync(ctx context.Context, id int64) error {
	return s.repo.TouchLastSync(ctx, s.db, id, s.clock.Now())
}
