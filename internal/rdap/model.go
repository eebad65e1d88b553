// Package rdap resolves domain facts over RDAP using the IANA bootstrap directory.
package rdap

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Entry maps a TLD to the base URL of its RDAP service.
type Entry struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	TLD       string    `json:"tld" gorm:"type:text;not null;uniqueIndex"`
	RDAP      string    `json:"rdap" gorm:"column:rdap;type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Entry) TableName() string { return "rdaps" }

type Repository interface {
	FindURL(ctx context.Context, db *gorm.DB, tld string) (string, error)
	// URLs returns every known tld to URL mapping.
	URLs(ctx context.Context, db *gorm.DB) (map[string]string, error)
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	UpdateURL(ctx context.Context, db *gorm.DB, tld, url string, now time.Time) error
	Count(ctx context.Context, db *gorm.DB) (int64, error)
}

type repo struct{}

func NewRepository() Repository {
	return &repo{}
}

func (r *repo) FindURL(ctx context.Context, db *gorm.DB, tld string) (string, error) {
	var url string
	err := db.WithContext(ctx).Raw(
		`SELECT rdap FROM rdaps WHERE tld = ? LIMIT 1`,
		tld,
	).Scan(&url).Error
	return url, err
}

func (r *repo) URLs(ctx context.Context, db *gorm.DB) (map[string]string, error) {
	var rows []Entry
	if err := db.WithContext(ctx).Raw(`SELECT tld, rdap FROM rdaps`).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.TLD] = row.RDAP
	}
	return out, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO rdaps (id, tld, rdap, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID,
		entry.TLD,
		entry.RDAP,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) UpdateURL(ctx context.Context, db *gorm.DB, tld, url string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE rdaps SET rdap = ?, updated_at = ? WHERE tld = ?`,
		url,
		now.UTC(),
		tld,
	).Error
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&Entry{}).Count(&count).Error
	return count, err
}
