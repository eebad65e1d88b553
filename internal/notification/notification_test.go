package notification

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/pkg/db/pagination"
	"github.com/smallbiznis/domainledger/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var notifiedAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&Notification{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		Repo:  repository.ProvideStore[Notification](db),
		GenID: node,
		Clock: clock.NewFakeClock(notifiedAt),
		Log:   zap.NewNop(),
	})
}

func TestNotifyWithoutUserIsDropped(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Notify(ctx, "  ", TitleDomainSync, "Synced example.com successfully.", LevelSuccess)

	count, err := svc.repo.Count(ctx, &Notification{})
	require.NoError(t, err)
	assert.Zero(t, count)

	res, err := svc.List(ctx, ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, res.Notifications)
}

func TestListPagesNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, body := range []string{"first", "second", "third"} {
		svc.Notify(ctx, "u1", TitleRegistrarPriceSync, body, LevelSuccess)
	}
	svc.Notify(ctx, "u2", TitleDomainSync, "other user", LevelDanger)

	page, err := svc.List(ctx, ListRequest{UserID: "u1", Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "third", page.Notifications[0].Body)
	assert.Equal(t, "second", page.Notifications[1].Body)
	assert.True(t, page.PageInfo.HasMore)
	require.NotEmpty(t, page.PageInfo.NextPageToken)

	next, err := svc.List(ctx, ListRequest{UserID: "u1", Pagination: pagination.Pagination{PageSize: 2, PageToken: page.PageInfo.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, next.Notifications, 1)
	assert.Equal(t, "first", next.Notifications[0].Body)
	assert.Equal(t, LevelSuccess, next.Notifications[0].Status)
	assert.True(t, notifiedAt.Equal(next.Notifications[0].CreatedAt))
	assert.False(t, next.PageInfo.HasMore)
}
