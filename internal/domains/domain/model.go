package domain

import (
	"strings"
	"time"

	"github.com/smallbiznis/domainledger/internal/facts"
	"gorm.io/datatypes"
)

// SyncStatus is the position of a domain in the fact-gathering pipeline.
type SyncStatus int

const (
	StatusPending SyncStatus = iota
	StatusSyncIntegration
	StatusSyncRDAP
	StatusSyncWhois
	StatusCompleted
	StatusFailedSyncIntegration
	StatusFailedSyncRDAP
	StatusFailedSyncWhois
)

func (s SyncStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSyncIntegration:
		return "SYNC_INTEGRATION"
	case StatusSyncRDAP:
		return "SYNC_RDAP"
	case StatusSyncWhois:
		return "SYNC_WHOIS"
	case StatusCompleted:
		return "COMPLETED"
	case StatusFailedSyncIntegration:
		return "FAILED_SYNC_INTEGRATION"
	case StatusFailedSyncRDAP:
		return "FAILED_SYNC_RDAP"
	case StatusFailedSyncWhois:
		return "FAILED_SYNC_WHOIS"
	default:
		return "UNKNOWN"
	}
}

func (s SyncStatus) Failed() bool {
	return s >= StatusFailedSyncIntegration && s <= StatusFailedSyncWhois
}

type Domain struct {
	ID               int64                       `json:"id,string" gorm:"primaryKey"`
	Name             string                      `json:"domain_name" gorm:"column:domain_name;type:text;not null;uniqueIndex"`
	RegistrarID      *int64                      `json:"registrar_id,string,omitempty" gorm:"index"`
	FeeID            *int64                      `json:"registrar_fee_id,string,omitempty" gorm:"column:registrar_fee_id"`
	RegistrationDate *time.Time                  `json:"registration_date,omitempty"`
	ExpirationDate   *time.Time                  `json:"expiration_date,omitempty"`
	Nameservers      datatypes.JSONSlice[string] `json:"nameservers"`
	SecurityLock     *bool                       `json:"security_lock,omitempty"`
	WhoisPrivacy     *bool                       `json:"whois_privacy,omitempty"`
	SyncStatus       SyncStatus                  `json:"sync_status" gorm:"not null;default:0;index"`
	LastSyncedAt     *time.Time                  `json:"last_synced_at,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

func (Domain) TableName() string { return "domains" }

// Facts returns the stored facts of the domain.
func (d Domain) Facts() facts.FactSet {
	return facts.FactSet{
		Name:             d.Name,
		RegistrationDate: d.RegistrationDate,
		ExpirationDate:   d.ExpirationDate,
		Nameservers:      []string(d.Nameservers),
		SecurityLock:     d.SecurityLock,
		WhoisPrivacy:     d.WhoisPrivacy,
	}
}

// Fill copies the known values of fs onto the domain and reports whether anything changed.
// Unknown values and empty nameserver lists leave the stored value in place.
func (d *Domain) Fill(fs facts.FactSet) bool {
	dirty := false
	if fs.RegistrationDate != nil && !sameTime(d.RegistrationDate, fs.RegistrationDate) {
		d.RegistrationDate = fs.RegistrationDate
		dirty = true
	}
	if fs.ExpirationDate != nil && !sameTime(d.ExpirationDate, fs.ExpirationDate) {
		d.ExpirationDate = fs.ExpirationDate
		dirty = true
	}
	if ns := facts.CleanNameservers(fs.Nameservers); len(ns) > 0 && !sameList(d.Nameservers, ns) {
		d.Nameservers = ns
		dirty = true
	}
	if fs.SecurityLock != nil && !sameBool(d.SecurityLock, fs.SecurityLock) {
		d.SecurityLock = fs.SecurityLock
		dirty = true
	}
	if fs.WhoisPrivacy != nil && !sameBool(d.WhoisPrivacy, fs.WhoisPrivacy) {
		d.WhoisPrivacy = fs.WhoisPrivacy
		dirty = true
	}
	return dirty
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NormalizeName lowercases and trims a domain name, dropping a trailing dot.
func NormalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

// FeeCandidates returns the co-TLD (last two labels, only for names with three or more
// labels) and the TLD of name. Names with fewer than two labels have no candidates.
func FeeCandidates(name string) (coTLD, tld string) {
	labels := strings.Split(NormalizeName(name), ".")
	n := len(labels)
	if n < 2 {
		return "", ""
	}
	if n >= 3 {
		coTLD = labels[n-2] + "." + labels[n-1]
	}
	return coTLD, labels[n-1]
}
