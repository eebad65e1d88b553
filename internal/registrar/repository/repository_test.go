package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/domainledger/internal/registrar/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Registrar{}))
	return db
}

func TestRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := Provide()
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, db, &domain.Registrar{
		ID: 1, Name: "Porkbun", Slug: "porkbun", APISupport: domain.CodePorkbun, Currency: "USD",
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, repo.Insert(ctx, db, &domain.Registrar{
		ID: 2, Name: "Local Reseller", Slug: "local-reseller", Currency: "IDR",
		CreatedAt: now, UpdatedAt: now,
	}))

	got, err := repo.FindByID(ctx, db, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.CodePorkbun, got.APISupport)

	missing, err := repo.FindByID(ctx, db, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.List(ctx, db)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	supported, err := repo.ListWithAPISupport(ctx, db)
	require.NoError(t, err)
	require.Len(t, supported, 1)
	assert.Equal(t, int64(1), supported[0].ID)

	synced := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateAPISettings(ctx, db, 1, []byte(`{"version":1}`), synced))
	require.NoError(t, repo.TouchLastSync(ctx, db, 1, synced))

	got, err = repo.FindByID(ctx, db, 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(got.APISettings))
	require.NotNil(t, got.LastSyncAt)
	assert.True(t, synced.Equal(*got.LastSyncAt))
	assert.True(t, synced.Equal(got.UpdatedAt))
}
