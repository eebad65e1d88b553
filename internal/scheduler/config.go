package scheduler

import (
	"time"

	"github.com/smallbiznis/domainledger/internal/config"
)

// Config controls the scheduler loop. Per-job intervals live in the hot-reloadable
// sync config so operators can retune them without a restart.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		JobTimeout:  30 * time.Second,
	}
}

func ProvideConfig(cfg config.Config, sync *config.SyncConfigHolder) Config {
	return Config{
		RunInterval: sync.Get().Scheduler.Tick,
		EnabledJobs: cfg.SchedulerJobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
