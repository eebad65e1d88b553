// Package queue carries sync work items between the API, the scheduler and the workers.
// Delivery is at least once; handlers must tolerate duplicates.
package queue

import (
	"errors"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/domainledger/internal/syncerr"
)

type Kind string

const (
	KindSyncDomain              Kind = "sync_domain"
	KindSyncRegistrarPrices     Kind = "sync_registrar_prices"
	KindSyncRegistrarTypePrices Kind = "sync_registrar_type_prices"
	KindBackfillRegistrarFees   Kind = "backfill_registrar_fees"
	KindSyncRegistrarDomains    Kind = "sync_registrar_domains"
	KindSyncRdaps               Kind = "sync_rdaps"
)

// MaxAttempts bounds redelivery of items failing with a retryable error.
const MaxAttempts = 3

var (
	// ErrNoItem is returned by Dequeue when nothing arrived before the poll timeout.
	ErrNoItem       = errors.New("queue_empty")
	ErrInvalidItem  = errors.New("invalid_work_item")
	ErrQueueStopped = errors.New("queue_stopped")
)

// WorkItem is one independent unit of sync work.
type WorkItem struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	DomainID    int64     `json:"domain_id,omitempty"`
	RegistrarID int64     `json:"registrar_id,omitempty"`
	Category    string    `json:"category,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	BatchID     string    `json:"batch_id,omitempty"`
	Attempt     int       `json:"attempt"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

func SyncDomain(domainID int64, userID string) WorkItem {
	return WorkItem{Kind: KindSyncDomain, DomainID: domainID, UserID: userID}
}

func SyncRegistrarPrices(registrarID int64, userID string) WorkItem {
	return WorkItem{Kind: KindSyncRegistrarPrices, RegistrarID: registrarID, UserID: userID}
}

func SyncRegistrarTypePrices(registrarID int64, category, userID string) WorkItem {
	return WorkItem{Kind: KindSyncRegistrarTypePrices, RegistrarID: registrarID, Category: category, UserID: userID}
}

func BackfillRegistrarFees(registrarID int64, userID string) WorkItem {
	return WorkItem{Kind: KindBackfillRegistrarFees, RegistrarID: registrarID, UserID: userID}
}

func SyncRegistrarDomains(registrarID int64, userID string) WorkItem {
	return WorkItem{Kind: KindSyncRegistrarDomains, RegistrarID: registrarID, UserID: userID}
}

func SyncRdaps(userID string) WorkItem {
	return WorkItem{Kind: KindSyncRdaps, UserID: userID}
}

// Validate checks that the item names what it works on.
func (w WorkItem) Validate() error {
	switch w.Kind {
	case KindSyncDomain:
		if w.DomainID <= 0 {
			return ErrInvalidItem
		}
	case KindSyncRegistrarPrices, KindBackfillRegistrarFees, KindSyncRegistrarDomains:
		if w.RegistrarID <= 0 {
			return ErrInvalidItem
		}
	case KindSyncRegistrarTypePrices:
		if w.RegistrarID <= 0 || w.Category == "" {
			return ErrInvalidItem
		}
	case KindSyncRdaps:
	default:
		return ErrInvalidItem
	}
	return nil
}

// WillRetry reports whether the worker will redeliver the item after it failed with err.
func (w WorkItem) WillRetry(err error) bool {
	return syncerr.IsRetryable(err) && w.Attempt+1 < MaxAttempts
}

// Subject is a short log-friendly description of the target.
func (w WorkItem) Subject() string {
	switch {
	case w.DomainID > 0:
		return "domain:" + strconv.FormatInt(w.DomainID, 10)
	case w.Category != "":
		return "registrar:" + strconv.FormatInt(w.RegistrarID, 10) + ":" + w.Category
	case w.RegistrarID > 0:
		return "registrar:" + strconv.FormatInt(w.RegistrarID, 10)
	default:
		return "global"
	}
}

// stamp assigns the id and enqueue time of a fresh item.
func stamp(item WorkItem, now time.Time) WorkItem {
	if item.ID == "" {
		item.ID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = now.UTC()
	}
	return item
}

// NewBatchID returns an id for a group of items tracked by Batches.
func NewBatchID() string {
	return ulid.Make().String()
}
