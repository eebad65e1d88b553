package domain

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/datatypes"
)

// Code identifies which integration client serves a registrar.
type Code int

const (
	CodeNone        Code = 0
	CodeDynadot     Code = 2
	CodePorkbun     Code = 3
	CodeIDwebhost   Code = 6
	CodeIDCloudHost Code = 7
)

func (c Code) String() string {
	switch c {
	case CodeDynadot:
		return "dynadot"
	case CodePorkbun:
		return "porkbun"
	case CodeIDwebhost:
		return "idwebhost"
	case CodeIDCloudHost:
		return "idcloudhost"
	default:
		return "none"
	}
}

// Integration describes how a registrar's data is reached.
type Integration string

const (
	IntegrationNone   Integration = "none"
	IntegrationNative Integration = "native_api"
	IntegrationScrape Integration = "scrape"
)

// Integration returns the capability descriptor for the code.
func (c Code) Integration() Integration {
	switch c {
	case CodeDynadot, CodePorkbun:
		return IntegrationNative
	case CodeIDwebhost, CodeIDCloudHost:
		return IntegrationScrape
	default:
		return IntegrationNone
	}
}

// Registrar is a company domains are registered with.
type Registrar struct {
	ID         int64  `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"type:text;not null"`
	Slug       string `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	APISupport Code   `json:"api_support" gorm:"column:api_support;not null;default:0"`
	Currency   string `json:"currency" gorm:"type:text;not null;default:'USD'"`
	Notes      string `json:"notes,omitempty" gorm:"type:text"`
	// APISettings is the sealed credential bag; see the credentials package.
	APISettings datatypes.JSON `json:"-" gorm:"column:api_settings"`
	LastSyncAt  *time.Time     `json:"last_sync_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Registrar) TableName() string { return "registrars" }

// HasAPISupport reports whether any integration client exists for the registrar.
func (r Registrar) HasAPISupport() bool {
	return r.APISupport != CodeNone
}

// Label is a metric and lock-key friendly name.
func (r Registrar) Label() string {
	if s := strings.TrimSpace(r.Slug); s != "" {
		return s
	}
	return slug.Make(r.Name)
}

// Credentials is the decrypted credential bag.
type Credentials struct {
	APIKey    string `json:"api_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
	Cookies   string `json:"cookies,omitempty"`
}

// Normalize trims every field.
func (c Credentials) Normalize() Credentials {
	return Credentials{
		APIKey:    strings.TrimSpace(c.APIKey),
		SecretKey: strings.TrimSpace(c.SecretKey),
		Cookies:   strings.TrimSpace(c.Cookies),
	}
}

func (c Credentials) Empty() bool {
	n := c.Normalize()
	return n.APIKey == "" && n.SecretKey == "" && n.Cookies == ""
}
