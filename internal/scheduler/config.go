package scheduler

import "time"

// Config controls scheduler cadence and job selection.
type Config struct {
	RunInterval time.Duration
	// RevenueRefreshInterval spaces out the creator revenue-summary
	// recompute; it is far heavier than the tick.
	RevenueRefreshInterval time.Duration
	// EnabledJobs empty means all jobs run (monolith mode).
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:            time.Minute,
		RevenueRefreshInterval: 15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RevenueRefreshInterval <= 0 {
		c.RevenueRefreshInterval = defaults.RevenueRefreshInterval
	}
	return c
}
