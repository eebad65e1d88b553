package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/domainledger/internal/registrar/domain"
	"gorm.io/gorm"
)

const registrarColumns = `id, name, slug, api_support, currency, notes, api_settings, last_sync_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Registrar, error) {
	var item domain.Registrar
	err := db.WithContext(ctx).Raw(
		`SELECT `+registrarColumns+`
		 FROM registrars
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Registrar, error) {
	var items []domain.Registrar
	err := db.WithContext(ctx).Raw(
		`SELECT ` + registrarColumns + `
		 FROM registrars
		 ORDER BY name`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListWithAPISupport(ctx context.Context, db *gorm.DB) ([]domain.Registrar, error) {
	var items []domain.Registrar
	err := db.WithContext(ctx).Raw(
		`SELECT `+registrarColumns+`
		 FROM registrars
		 WHERE api_support <> ?
		 ORDER BY name`,
		domain.CodeNone,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, registrar *domain.Registrar) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO registrars (
			id, name, slug, api_support, currency, notes, api_settings, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		registrar.ID,
		registrar.Name,
		registrar.Slug,
		registrar.APISupport,
		registrar.Currency,
		registrar.Notes,
		registrar.APISettings,
		registrar.CreatedAt,
		registrar.UpdatedAt,
	).Error
}

func (r *repo) UpdateAPISettings(ctx context.Context, db *gorm.DB, id int64, settings []byte, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE registrars
		 SET api_settings = ?, updated_at = ?
		 WHERE id = ?`,
		settings,
		now.UTC(),
		id,
	).Error
}

func (r *repo) TouchLastSync(ctx context.Context, db *gorm.DB, id int64, now time.Time) error {
	now = now.UTC()
	return db.WithContext(ctx).Exec(
		`UPDATE registrars
		 SET last_sync_at = ?, updated_at = ?
		 WHERE id = ?`,
		now,
		now,
		id,
	).Error
}
