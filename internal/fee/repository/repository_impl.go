package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/domainledger/internal/fee/domain"
	"gorm.io/gorm"
)

const feeColumns = `id, registrar_id, tld, register_price, renew_price, transfer_price, restore_price, privacy_price, misc_price, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByRegistrarTLD(ctx context.Context, db *gorm.DB, registrarID int64, tld string) (*domain.Fee, error) {
	var item domain.Fee
	err := db.WithContext(ctx).Raw(
		`SELECT `+feeColumns+`
		 FROM registrar_fees
		 WHERE registrar_id = ? AND tld = ?
		 LIMIT 1`,
		registrarID,
		tld,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, fee *domain.Fee) error {
	return db.WithContext(ctx).Create(fee).Error
}

func (r *repo) UpdateColumns(ctx context.Context, db *gorm.DB, id int64, columns map[string]any, now time.Time) error {
	if len(columns) == 0 {
		return nil
	}
	updates := make(map[string]any, len(columns)+1)
	for k, v := range columns {
		updates[k] = v
	}
	updates["updated_at"] = now.UTC()
	return db.WithContext(ctx).
		Model(&domain.Fee{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) ListChunk(ctx context.Context, db *gorm.DB, registrarID, afterID int64, limit int) ([]domain.Fee, error) {
	var items []domain.Fee
	err := db.WithContext(ctx).Raw(
		`SELECT `+feeColumns+`
		 FROM registrar_fees
		 WHERE registrar_id = ? AND id > ?
		 ORDER BY id
		 LIMIT ?`,
		registrarID,
		afterID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByRegistrar(ctx context.Context, db *gorm.DB, registrarID int64) ([]domain.Fee, error) {
	var items []domain.Fee
	err := db.WithContext(ctx).Raw(
		`SELECT `+feeColumns+`
		 FROM registrar_fees
		 WHERE registrar_id = ?
		 ORDER BY tld`,
		registrarID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]domain.Fee, error) {
	var items []domain.Fee
	err := db.WithContext(ctx).Raw(
		`SELECT ` + feeColumns + `
		 FROM registrar_fees
		 ORDER BY tld, registrar_id`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
