package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/domainledger/internal/facts"
	"github.com/smallbiznis/domainledger/pkg/db/pagination"
	"gorm.io/gorm"
)

var (
	ErrDomainNotFound = errors.New("domain_not_found")
	ErrInvalidName    = errors.New("invalid_domain_name")
	ErrDuplicateName  = errors.New("domain_name_taken")
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Domain, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Domain, error)
	Insert(ctx context.Context, db *gorm.DB, item *Domain) error
	Save(ctx context.Context, db *gorm.DB, item *Domain) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status SyncStatus) error
	// SaveFacts writes the synced fact columns and the status only, leaving
	// name, registrar and fee assignments as they are in the database.
	SaveFacts(ctx context.Context, db *gorm.DB, item *Domain, now time.Time) error
	List(ctx context.Context, db *gorm.DB, req ListRequest) ([]*Domain, error)
	// ListResyncCandidates returns ids of domains that are not COMPLETED or whose last
	// sync is older than staleBefore, oldest first.
	ListResyncCandidates(ctx context.Context, db *gorm.DB, staleBefore time.Time, limit int) ([]int64, error)
}

type ListRequest struct {
	RegistrarID *int64
	Status      *SyncStatus
	pagination.Pagination
}

type ListResponse struct {
	Domains  []*Domain            `json:"domains"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

type CreateRequest struct {
	Name        string `json:"domain_name"`
	RegistrarID *int64 `json:"registrar_id,string,omitempty"`
}

type UpdateRequest struct {
	Name        *string `json:"domain_name,omitempty"`
	RegistrarID *int64  `json:"registrar_id,string,omitempty"`
}

// RosterResult counts what a registrar roster import did.
type RosterResult struct {
	Created   int
	Updated   int
	Unchanged int
	// DomainIDs lists every imported domain in roster order.
	DomainIDs []int64
}

type Service interface {
	Get(ctx context.Context, id int64) (*Domain, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	// Create stores a domain, resolves its registrar fee and queues a sync.
	Create(ctx context.Context, req CreateRequest) (*Domain, error)
	// Update re-resolves the fee when the name or registrar changes and queues a sync when
	// the name changes.
	Update(ctx context.Context, id int64, req UpdateRequest) (*Domain, error)
	RequestSync(ctx context.Context, id int64) error
	// ImportRoster merges a registrar's domain list into the store.
	ImportRoster(ctx context.Context, registrarID int64, roster []facts.FactSet) (RosterResult, error)
	ListResyncCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]int64, error)
}
