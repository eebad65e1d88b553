// Package notification stores user-facing sync notices. A notice without a user id has no
// audience and is dropped.
package notification

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/observability/metrics"
	"github.com/smallbiznis/domainledger/pkg/db/option"
	"github.com/smallbiznis/domainledger/pkg/db/pagination"
	"github.com/smallbiznis/domainledger/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

const (
	TitleDomainSync         = "Domain Sync"
	TitleDomainSyncFailed   = "Domain Sync Failed"
	TitleRegistrarPriceSync = "Registrar Price Sync"
	TitleRdapSyncCompleted  = "RDAP Sync Completed"
	TitleRdapSyncFailed     = "RDAP Sync Failed"
	TitleFeeNotFound        = "Registrar fee not found"
)

type Notification struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:text;not null;index"`
	Title     string    `json:"title" gorm:"type:text;not null"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	Status    Level     `json:"status" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// Notifier delivers a notice to a user.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string, level Level)
}

type ListRequest struct {
	UserID string
	pagination.Pagination
}

type ListResponse struct {
	Notifications []*Notification      `json:"notifications"`
	PageInfo      *pagination.PageInfo `json:"page_info"`
}

var Module = fx.Module("notification",
	fx.Provide(repository.ProvideStore[Notification]),
	fx.Provide(New),
	fx.Provide(func(s *Service) Notifier { return s }),
)

type Params struct {
	fx.In

	Repo    repository.Repository[Notification]
	GenID   *snowflake.Node
	Clock   clock.Clock      `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

// Service writes notices to the notifications table and the log.
type Service struct {
	repo    repository.Repository[Notification]
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *zap.Logger
}

func New(p Params) *Service {
	if p.Clock == nil {
		p.Clock = clock.SystemClock{}
	}
	return &Service{
		repo:    p.Repo,
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
		log:     p.Log.Named("notification"),
	}
}

// Notify never fails the caller; storage errors are logged.
func (s *Service) Notify(ctx context.Context, userID, title, body string, level Level) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return
	}

	n := &Notification{
		ID:        s.genID.Generate().Int64(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Status:    level,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Error("notification store failed", zap.String("user_id", userID), zap.String("title", title), zap.Error(err))
		return
	}
	s.metrics.RecordNotification(ctx, string(level))
	s.log.Info("notification sent",
		zap.String("user_id", userID),
		zap.String("title", title),
		zap.String("status", string(level)),
		zap.String("body", body),
	)
}

// List pages through a user's notices, newest first.
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return &ListResponse{Notifications: []*Notification{}, PageInfo: &pagination.PageInfo{}}, nil
	}

	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	if size > 250 {
		size = 250
	}
	req.PageSize = size

	items, err := s.repo.Find(ctx, &Notification{UserID: userID}, option.ApplyPagination(req.Pagination))
	if err != nil {
		return nil, err
	}
	items, info := pagination.BuildCursorPageInfo(items, size, func(n *Notification) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: strconv.FormatInt(n.ID, 10)})
		return token
	})
	return &ListResponse{Notifications: items, PageInfo: info}, nil
}

// Nop drops every notice.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, string, Level) {}
