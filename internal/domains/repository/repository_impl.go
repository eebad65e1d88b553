package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/domainledger/internal/domains/domain"
	"github.com/smallbiznis/domainledger/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Domain, error) {
	return r.findOne(ctx, db.Where("id = ?", id))
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Domain, error) {
	return r.findOne(ctx, db.Where("domain_name = ?", name))
}

func (r *repo) findOne(ctx context.Context, stmt *gorm.DB) (*domain.Domain, error) {
	var item domain.Domain
	err := stmt.WithContext(ctx).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, item *domain.Domain) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, item *domain.Domain) error {
	item.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(item).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status domain.SyncStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE domains SET sync_status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) SaveFacts(ctx context.Context, db *gorm.DB, item *domain.Domain, now time.Time) error {
	item.UpdatedAt = now.UTC()
	return db.WithContext(ctx).
		Model(&domain.Domain{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"registration_date": item.RegistrationDate,
			"expiration_date":   item.ExpirationDate,
			"nameservers":       item.Nameservers,
			"security_lock":     item.SecurityLock,
			"whois_privacy":     item.WhoisPrivacy,
			"sync_status":       item.SyncStatus,
			"last_synced_at":    item.LastSyncedAt,
			"updated_at":        item.UpdatedAt,
		}).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListRequest) ([]*domain.Domain, error) {
	stmt := db.WithContext(ctx).Model(&domain.Domain{})
	if req.RegistrarID != nil {
		stmt = stmt.Where("registrar_id = ?", *req.RegistrarID)
	}
	if req.Status != nil {
		stmt = stmt.Where("sync_status = ?", *req.Status)
	}
	stmt = option.ApplyPagination(req.Pagination).Apply(stmt)

	var items []*domain.Domain
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListResyncCandidates(ctx context.Context, db *gorm.DB, staleBefore time.Time, limit int) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT id
		 FROM domains
		 WHERE sync_status <> ? OR last_synced_at IS NULL OR last_synced_at < ?
		 ORDER BY COALESCE(last_synced_at, created_at), id
		 LIMIT ?`,
		domain.StatusCompleted,
		staleBefore,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
