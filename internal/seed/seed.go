// Package seed inserts the registrars that have a built-in integration client.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
	"gorm.io/gorm"
)

type builtinRegistrar struct {
	Name     string
	Code     registrardomain.Code
	Currency string
}

var builtinRegistrars = []builtinRegistrar{
	{Name: "Dynadot", Code: registrardomain.CodeDynadot, Currency: "USD"},
	{Name: "Porkbun", Code: registrardomain.CodePorkbun, Currency: "USD"},
	{Name: "IDwebhost", Code: registrardomain.CodeIDwebhost, Currency: "IDR"},
	{Name: "IDCloudHost", Code: registrardomain.CodeIDCloudHost, Currency: "IDR"},
}

// EnsureRegistrars creates any missing built-in registrar, matched by slug. Existing rows
// are left untouched so operator edits survive restarts. It returns how many were created.
func EnsureRegistrars(ctx context.Context, db *gorm.DB, node *snowflake.Node) (int, error) {
	if db == nil || node == nil {
		return 0, errors.New("seed database handle is required")
	}

	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range builtinRegistrars {
			var count int64
			if err := tx.Model(&registrardomain.Registrar{}).
				Where("slug = ?", slug.Make(b.Name)).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			now := time.Now().UTC()
			item := registrardomain.Registrar{
				ID:         node.Generate().Int64(),
				Name:       b.Name,
				Slug:       slug.Make(b.Name),
				APISupport: b.Code,
				Currency:   b.Currency,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
