package biz

import (
	"time"

	"ScoutBot/internal/conf"
)

// Settings is the static governor configuration, read once at startup.
type Settings struct {
	// Enabled=false runs operations directly without tracking.
	Enabled bool

	MinDelay          time.Duration
	MaxDelay          time.Duration
	DecayFactor       float64
	GrowthFactor      float64
	ErrorGrowthFactor float64

	FailureThreshold int
	OpenTimeout      time.Duration

	// RequestTimeout bounds each operation; zero leaves only the caller's deadline.
	RequestTimeout time.Duration

	// RecentWindow is the number of latest outcomes kept per origin for reporting.
	RecentWindow int
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		Enabled:           true,
		MinDelay:          5 * time.Second,
		MaxDelay:          300 * time.Second,
		DecayFactor:       0.9,
		GrowthFactor:      2.0,
		ErrorGrowthFactor: 1.3,
		FailureThreshold:  5,
		OpenTimeout:       5 * time.Minute,
		RequestTimeout:    60 * time.Second,
		RecentWindow:      50,
	}
}

// NewSettings builds Settings from the loaded configuration, falling back to defaults
// for anything left unset.
func NewSettings(c *conf.Governor) Settings {
	s := DefaultSettings()
	if c == nil {
		return s
	}

	s.Enabled = c.Enabled
	if d := c.MinDelay.AsDuration(); d > 0 {
		s.MinDelay = d
	}
	if d := c.MaxDelay.AsDuration(); d > 0 {
		s.MaxDelay = d
	}
	if c.DecayFactor > 0 {
		s.DecayFactor = c.DecayFactor
	}
	if c.GrowthFactor > 0 {
		s.GrowthFactor = c.GrowthFactor
	}
	if c.ErrorGrowthFactor > 0 {
		s.ErrorGrowthFactor = c.ErrorGrowthFactor
	}
	if c.FailureThreshold > 0 {
		s.FailureThreshold = int(c.FailureThreshold)
	}
	if d := c.OpenTimeout.AsDuration(); d > 0 {
		s.OpenTimeout = d
	}
	if c.RequestTimeout != nil {
		s.RequestTimeout = c.RequestTimeout.AsDuration()
	}
	if c.RecentWindow > 0 {
		s.RecentWindow = int(c.RecentWindow)
	}
	return s
}

func (s Settings) delayPolicy() DelayPolicy {
	return DelayPolicy{
		Min:         s.MinDelay,
		Max:         s.MaxDelay,
		Decay:       s.DecayFactor,
		Growth:      s.GrowthFactor,
		ErrorGrowth: s.ErrorGrowthFactor,
	}
}

func (s Settings) circuitBreaker() CircuitBreaker {
	return CircuitBreaker{
		FailureThreshold: s.FailureThreshold,
		OpenTimeout:      s.OpenTimeout,
	}
}
