package sweeper

import "time"

// Config controls the sweep cadence.
type Config struct {
	RunInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = DefaultConfig().RunInterval
	}
	return c
}
