package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/domainledger/internal/pricing"
	"gorm.io/gorm"
)

var ErrFeeNotFound = errors.New("fee_not_found")

type Repository interface {
	FindByRegistrarTLD(ctx context.Context, db *gorm.DB, registrarID int64, tld string) (*Fee, error)
	Insert(ctx context.Context, db *gorm.DB, fee *Fee) error
	// UpdateColumns writes columns and stamps updated_at with now.
	UpdateColumns(ctx context.Context, db *gorm.DB, id int64, columns map[string]any, now time.Time) error
	// ListChunk returns up to limit fees of the registrar with id greater than afterID.
	ListChunk(ctx context.Context, db *gorm.DB, registrarID, afterID int64, limit int) ([]Fee, error)
	ListByRegistrar(ctx context.Context, db *gorm.DB, registrarID int64) ([]Fee, error)
	ListAll(ctx context.Context, db *gorm.DB) ([]Fee, error)
}

// Service reconciles observed prices into fee rows.
type Service interface {
	// SyncPrices upserts a full price list; every quote with a TLD may create a row.
	SyncPrices(ctx context.Context, registrarID int64, quotes []pricing.Quote) (Summary, error)
	// SyncTypePrices upserts one deferred category phase. Rows are only created when the
	// quote carries a positive renew price, and register defaults to renew.
	SyncTypePrices(ctx context.Context, registrarID int64, quotes []pricing.Quote) (Summary, error)
	// Backfill fills missing renew and transfer prices from register. Returns rows changed.
	Backfill(ctx context.Context, registrarID int64) (int, error)
	// FindID returns the fee id for (registrar, tld) or nil when there is none.
	FindID(ctx context.Context, registrarID int64, tld string) (*int64, error)
	List(ctx context.Context, registrarID int64) ([]Fee, error)
	ListAll(ctx context.Context) ([]Fee, error)
}
