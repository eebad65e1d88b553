package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrRegistrarNotFound    = errors.New("registrar_not_found")
	ErrNoAPISupport         = errors.New("registrar_no_api_support")
	ErrNotConfigured        = errors.New("registrar_not_configured")
	ErrClientNotRegistered  = errors.New("registrar_client_not_registered")
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrEncryptionKeyMissing = errors.New("encryption_key_missing")
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Registrar, error)
	List(ctx context.Context, db *gorm.DB) ([]Registrar, error)
	ListWithAPISupport(ctx context.Context, db *gorm.DB) ([]Registrar, error)
	Insert(ctx context.Context, db *gorm.DB, registrar *Registrar) error
	UpdateAPISettings(ctx context.Context, db *gorm.DB, id int64, settings []byte, now time.Time) error
	TouchLastSync(ctx context.Context, db *gorm.DB, id int64, now time.Time) error
}

// Resolved is a registrar together with its ready-to-use client.
type Resolved struct {
	Registrar Registrar
	Client    Client
}

type Service interface {
	// Get returns ErrRegistrarNotFound when id is unknown.
	Get(ctx context.Context, id int64) (*Registrar, error)
	List(ctx context.Context) ([]Registrar, error)
	ListWithAPISupport(ctx context.Context) ([]Registrar, error)
	Create(ctx context.Context, req CreateRequest) (*Registrar, error)
	// Resolve loads the registrar and builds its client. Undecryptable credentials
	// produce an unconfigured client rather than an error.
	Resolve(ctx context.Context, id int64) (*Resolved, error)
	SetCredentials(ctx context.Context, id int64, creds Credentials) error
	ValidateCredentials(ctx context.Context, id int64) error
	// TouchLastSync stamps the end of a roster sync.
	TouchLastSync(ctx context.Context, id int64) error
}

type CreateRequest struct {
	Name       string `json:"name"`
	APISupport Code   `json:"api_support"`
	Currency   string `json:"currency"`
	Notes      string `json:"notes"`
}
