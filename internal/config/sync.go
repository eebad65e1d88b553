package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SyncConfig is the hot-reloadable tuning of the sync pipeline, read from sync.yml.
type SyncConfig struct {
	// ProxyCountries is the pool the rendering fallback picks proxy_country from.
	ProxyCountries []string `mapstructure:"proxyCountries"`
	// IDwebhostCategories are the deferred price categories probed for IDwebhost.
	IDwebhostCategories []string `mapstructure:"idwebhostCategories"`

	FetchRatePerHost float64 `mapstructure:"fetchRatePerHost"`
	FetchBurst       int     `mapstructure:"fetchBurst"`

	Scheduler SchedulerIntervals `mapstructure:"scheduler"`
}

type SchedulerIntervals struct {
	Tick            time.Duration `mapstructure:"tick"`
	RdapDirectory   time.Duration `mapstructure:"rdapDirectory"`
	RegistrarPrices time.Duration `mapstructure:"registrarPrices"`
	RegistrarRoster time.Duration `mapstructure:"registrarRoster"`
	DomainResync    time.Duration `mapstructure:"domainResync"`
	// StaleAfter re-syncs completed domains whose last sync is older than this.
	StaleAfter time.Duration `mapstructure:"staleAfter"`
	BatchSize  int           `mapstructure:"batchSize"`
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		ProxyCountries: []string{
			"US", "AE", "BR", "CA", "CN", "CZ", "DE", "ES", "FR", "GB", "HK",
			"IN", "IT", "JP", "NL", "PL", "RU", "SA", "SG", "ID", "KR", "VN",
		},
		IDwebhostCategories: []string{
			"recommend", "domainid", "promo", "perusahaan", "organisasi", "pendidikan",
			"toko", "profesi", "bisnis", "personal", "umum",
		},
		FetchRatePerHost: 2,
		FetchBurst:       4,
		Scheduler: SchedulerIntervals{
			Tick:            time.Minute,
			RdapDirectory:   24 * time.Hour,
			RegistrarPrices: 24 * time.Hour,
			RegistrarRoster: 12 * time.Hour,
			DomainResync:    time.Hour,
			StaleAfter:      7 * 24 * time.Hour,
			BatchSize:       200,
		},
	}
}

// SyncConfigHolder serves the latest valid SyncConfig.
type SyncConfigHolder struct {
	current atomic.Value // holds SyncConfig
}

// StaticSyncConfig returns a holder that never reloads.
func StaticSyncConfig(cfg SyncConfig) *SyncConfigHolder {
	holder := &SyncConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewSyncConfigHolder reads sync.yml, falling back to defaults when no file exists,
// and watches the file for changes. Invalid reloads are logged and ignored.
func NewSyncConfigHolder(log *zap.Logger) (*SyncConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("sync-config")

	v := viper.New()
	v.SetConfigName("sync")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/domainledger")
	v.AddConfigPath(".")
	v.SetEnvPrefix("DOMAINLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSyncConfig()
	v.SetDefault("sync.proxyCountries", defaults.ProxyCountries)
	v.SetDefault("sync.idwebhostCategories", defaults.IDwebhostCategories)
	v.SetDefault("sync.fetchRatePerHost", defaults.FetchRatePerHost)
	v.SetDefault("sync.fetchBurst", defaults.FetchBurst)
	v.SetDefault("sync.scheduler.tick", defaults.Scheduler.Tick)
	v.SetDefault("sync.scheduler.rdapDirectory", defaults.Scheduler.RdapDirectory)
	v.SetDefault("sync.scheduler.registrarPrices", defaults.Scheduler.RegistrarPrices)
	v.SetDefault("sync.scheduler.registrarRoster", defaults.Scheduler.RegistrarRoster)
	v.SetDefault("sync.scheduler.domainResync", defaults.Scheduler.DomainResync)
	v.SetDefault("sync.scheduler.staleAfter", defaults.Scheduler.StaleAfter)
	v.SetDefault("sync.scheduler.batchSize", defaults.Scheduler.BatchSize)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeSyncConfig(v)
	if err != nil {
		return nil, err
	}
	holder := StaticSyncConfig(cfg)

	if fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeSyncConfig(v)
			if err != nil {
				log.Warn("sync config reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("sync config reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}
	return holder, nil
}

func (h *SyncConfigHolder) Get() SyncConfig {
	if h == nil {
		return DefaultSyncConfig()
	}
	cfg, ok := h.current.Load().(SyncConfig)
	if !ok {
		return DefaultSyncConfig()
	}
	return cfg
}

func decodeSyncConfig(v *viper.Viper) (SyncConfig, error) {
	var cfg SyncConfig
	if err := v.UnmarshalKey("sync", &cfg); err != nil {
		return SyncConfig{}, err
	}
	cfg = withSyncDefaults(cfg)
	if err := validateSyncConfig(cfg); err != nil {
		return SyncConfig{}, err
	}
	return cfg, nil
}

// withSyncDefaults fills settings a partial file left out.
func withSyncDefaults(cfg SyncConfig) SyncConfig {
	d := DefaultSyncConfig()
	if cfg.ProxyCountries == nil {
		cfg.ProxyCountries = d.ProxyCountries
	}
	if cfg.IDwebhostCategories == nil {
		cfg.IDwebhostCategories = d.IDwebhostCategories
	}
	if cfg.FetchRatePerHost == 0 {
		cfg.FetchRatePerHost = d.FetchRatePerHost
	}
	if cfg.FetchBurst <= 0 {
		cfg.FetchBurst = d.FetchBurst
	}
	s, ds := &cfg.Scheduler, d.Scheduler
	for _, pair := range []struct {
		dst *time.Duration
		def time.Duration
	}{
		{&s.Tick, ds.Tick},
		{&s.RdapDirectory, ds.RdapDirectory},
		{&s.RegistrarPrices, ds.RegistrarPrices},
		{&s.RegistrarRoster, ds.RegistrarRoster},
		{&s.DomainResync, ds.DomainResync},
		{&s.StaleAfter, ds.StaleAfter},
	} {
		if *pair.dst == 0 {
			*pair.dst = pair.def
		}
	}
	if s.BatchSize == 0 {
		s.BatchSize = ds.BatchSize
	}
	return cfg
}

func validateSyncConfig(cfg SyncConfig) error {
	if len(cfg.ProxyCountries) == 0 {
		return errors.New("sync.proxyCountries cannot be empty")
	}
	if cfg.FetchRatePerHost <= 0 {
		return errors.New("sync.fetchRatePerHost must be positive")
	}
	if cfg.Scheduler.Tick <= 0 {
		return errors.New("sync.scheduler.tick must be positive")
	}
	if cfg.Scheduler.BatchSize <= 0 {
		return errors.New("sync.scheduler.batchSize must be positive")
	}
	return nil
}
