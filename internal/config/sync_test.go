package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSyncConfigDefaults(t *testing.T) {
	v := viper.New()
	defaults := DefaultSyncConfig()
	v.SetDefault("sync", map[string]any{
		"proxyCountries":      defaults.ProxyCountries,
		"idwebhostCategories": defaults.IDwebhostCategories,
		"fetchRatePerHost":    defaults.FetchRatePerHost,
		"fetchBurst":          defaults.FetchBurst,
		"scheduler": map[string]any{
			"tick":      "30s",
			"batchSize": 50,
		},
	})

	cfg, err := decodeSyncConfig(v)
	require.NoError(t, err)
	assert.Len(t, cfg.ProxyCountries, 22)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Tick)
	assert.Equal(t, 50, cfg.Scheduler.BatchSize)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.RdapDirectory)
}

func TestDecodeSyncConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sync.yml")
	content := `sync:
  proxyCountries: [ID, SG]
  idwebhostCategories: [promo]
  fetchRatePerHost: 0.5
  fetchBurst: 1
  scheduler:
    tick: 2m
    staleAfter: 48h
    batchSize: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := decodeSyncConfig(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "SG"}, cfg.ProxyCountries)
	assert.Equal(t, []string{"promo"}, cfg.IDwebhostCategories)
	assert.Equal(t, 0.5, cfg.FetchRatePerHost)
	assert.Equal(t, 48*time.Hour, cfg.Scheduler.StaleAfter)
}

func TestValidateSyncConfig(t *testing.T) {
	cfg := DefaultSyncConfig()
	require.NoError(t, validateSyncConfig(cfg))

	cfg.ProxyCountries = []string{}
	assert.Error(t, validateSyncConfig(cfg))

	cfg = DefaultSyncConfig()
	cfg.FetchRatePerHost = -1
	assert.Error(t, validateSyncConfig(cfg))

	partial := withSyncDefaults(SyncConfig{FetchBurst: 2})
	assert.Equal(t, 2, partial.FetchBurst)
	assert.Equal(t, time.Minute, partial.Scheduler.Tick)
	assert.NotEmpty(t, partial.IDwebhostCategories)
}

func TestSyncConfigHolderGet(t *testing.T) {
	var nilHolder *SyncConfigHolder
	assert.Equal(t, DefaultSyncConfig(), nilHolder.Get())

	custom := DefaultSyncConfig()
	custom.FetchBurst = 9
	assert.Equal(t, 9, StaticSyncConfig(custom).Get().FetchBurst)
}
