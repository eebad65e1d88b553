package domain

import (
	"time"

	"github.com/smallbiznis/domainledger/internal/pricing"
)

// Fee is the stored price row of one (registrar, tld) pair. Prices are in the registrar's
// currency at two decimals; nil means never observed.
type Fee struct {
	ID            int64     `json:"id,string" gorm:"primaryKey"`
	RegistrarID   int64     `json:"registrar_id,string" gorm:"not null;uniqueIndex:ux_registrar_fees_registrar_tld,priority:1"`
	TLD           string    `json:"tld" gorm:"type:text;not null;uniqueIndex:ux_registrar_fees_registrar_tld,priority:2"`
	RegisterPrice *float64  `json:"register_price" gorm:"type:decimal(12,2)"`
	RenewPrice    *float64  `json:"renew_price" gorm:"type:decimal(12,2)"`
	TransferPrice *float64  `json:"transfer_price" gorm:"type:decimal(12,2)"`
	RestorePrice  *float64  `json:"restore_price" gorm:"type:decimal(12,2)"`
	PrivacyPrice  *float64  `json:"privacy_price" gorm:"type:decimal(12,2)"`
	MiscPrice     *float64  `json:"misc_price" gorm:"type:decimal(12,2)"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Fee) TableName() string { return "registrar_fees" }

// Column maps a price field to its column name.
func Column(f pricing.Field) string {
	return string(f) + "_price"
}

func (f Fee) Get(field pricing.Field) *float64 {
	switch field {
	case pricing.FieldRegister:
		return f.RegisterPrice
	case pricing.FieldRenew:
		return f.RenewPrice
	case pricing.FieldTransfer:
		return f.TransferPrice
	case pricing.FieldRestore:
		return f.RestorePrice
	case pricing.FieldPrivacy:
		return f.PrivacyPrice
	case pricing.FieldMisc:
		return f.MiscPrice
	default:
		return nil
	}
}

func (f *Fee) Set(field pricing.Field, v *float64) {
	switch field {
	case pricing.FieldRegister:
		f.RegisterPrice = v
	case pricing.FieldRenew:
		f.RenewPrice = v
	case pricing.FieldTransfer:
		f.TransferPrice = v
	case pricing.FieldRestore:
		f.RestorePrice = v
	case pricing.FieldPrivacy:
		f.PrivacyPrice = v
	case pricing.FieldMisc:
		f.MiscPrice = v
	}
}

// Summary counts what one reconciliation pass did.
type Summary struct {
	Created   int
	Updated   int
	Unchanged int
	Skipped   int
}

func (s Summary) Total() int {
	return s.Created + s.Updated + s.Unchanged
}
