package config

import (
	"fmt"
	"time"
)

// Settings holds the process-wide tunables that are not per-site: pool
// sizes, housekeeping cadence, and the sink's rate budget. Built with the
// same WithDefault(...).With...().Build() chain the rest of the codebase
// uses for configuration.
type Settings struct {
	browserPoolSize int
	browserPageTimeout time.Duration

	quietWindowPollInterval time.Duration
	drainPollInterval       time.Duration
	cycleJitter             time.Duration

	oldEntryCutoff     time.Duration
	oldEntryInterval   time.Duration
	oldEntryDeleteRate time.Duration
	dupPurgeDeleteRate time.Duration

	sinkWriteRatePerSec   int
	sinkCleanerWriteRate  int
	sinkQueryRatePerSec   int

	maxAttempt             int
	backoffInitialDuration time.Duration
	backoffMultiplier      float64
	backoffMaxDuration     time.Duration
	randomSeed             int64

	userAgent string
	dryRun    bool
}

// WithDefault returns a Settings builder seeded with the defaults named
// in the component design: 2-instance browser pool, 24h robots
// refresh handled separately by the robots package, 2-day housekeeping,
// 3 writes/s normal and 2 writes/s while the cleaner is active.
func WithDefault() *Settings {
	return &Settings{
		browserPoolSize:         2,
		browserPageTimeout:      300 * time.Second,
		quietWindowPollInterval: 12 * time.Minute,
		drainPollInterval:       5 * time.Minute,
		cycleJitter:             45 * time.Minute,
		oldEntryCutoff:          48 * time.Hour,
		oldEntryInterval:        48 * time.Hour,
		oldEntryDeleteRate:      time.Second,
		dupPurgeDeleteRate:      500 * time.Millisecond,
		sinkWriteRatePerSec:     3,
		sinkCleanerWriteRate:    2,
		sinkQueryRatePerSec:     3,
		maxAttempt:              5,
		backoffInitialDuration:  200 * time.Millisecond,
		backoffMultiplier:       2.0,
		backoffMaxDuration:      10 * time.Second,
		randomSeed:              time.Now().UnixNano(),
		userAgent:               "jobpipeline/1.0",
		dryRun:                  false,
	}
}

func (s *Settings) WithBrowserPoolSize(n int) *Settings {
	s.browserPoolSize = n
	return s
}

func (s *Settings) WithBrowserPageTimeout(d time.Duration) *Settings {
	s.browserPageTimeout = d
	return s
}

func (s *Settings) WithQuietWindowPollInterval(d time.Duration) *Settings {
	s.quietWindowPollInterval = d
	return s
}

func (s *Settings) WithDrainPollInterval(d time.Duration) *Settings {
	s.drainPollInterval = d
	return s
}

func (s *Settings) WithCycleJitter(d time.Duration) *Settings {
	s.cycleJitter = d
	return s
}

func (s *Settings) WithOldEntryCutoff(d time.Duration) *Settings {
	s.oldEntryCutoff = d
	return s
}

func (s *Settings) WithOldEntryInterval(d time.Duration) *Settings {
	s.oldEntryInterval = d
	return s
}

func (s *Settings) WithSinkWriteRatePerSec(n int) *Settings {
	s.sinkWriteRatePerSec = n
	return s
}

func (s *Settings) WithSinkCleanerWriteRate(n int) *Settings {
	s.sinkCleanerWriteRate = n
	return s
}

func (s *Settings) WithMaxAttempt(n int) *Settings {
	s.maxAttempt = n
	return s
}

func (s *Settings) WithBackoffInitialDuration(d time.Duration) *Settings {
	s.backoffInitialDuration = d
	return s
}

func (s *Settings) WithBackoffMultiplier(m float64) *Settings {
	s.backoffMultiplier = m
	return s
}

func (s *Settings) WithBackoffMaxDuration(d time.Duration) *Settings {
	s.backoffMaxDuration = d
	return s
}

func (s *Settings) WithRandomSeed(seed int64) *Settings {
	s.randomSeed = seed
	return s
}

func (s *Settings) WithUserAgent(ua string) *Settings {
	s.userAgent = ua
	return s
}

func (s *Settings) WithDryRun(dryRun bool) *Settings {
	s.dryRun = dryRun
	return s
}

func (s *Settings) Build() (Settings, error) {
	if s.browserPoolSize < 1 {
		return Settings{}, fmt.Errorf("%w: browserPoolSize must be >= 1", ErrInvalidConfig)
	}
	if s.sinkWriteRatePerSec < 1 {
		return Settings{}, fmt.Errorf("%w: sinkWriteRatePerSec must be >= 1", ErrInvalidConfig)
	}
	return *s, nil
}

func (s Settings) BrowserPoolSize() int                { return s.browserPoolSize }
func (s Settings) BrowserPageTimeout() time.Duration    { return s.browserPageTimeout }
func (s Settings) QuietWindowPollInterval() time.Duration { return s.quietWindowPollInterval }
func (s Settings) DrainPollInterval() time.Duration     { return s.drainPollInterval }
func (s Settings) CycleJitter() time.Duration           { return s.cycleJitter }
func (s Settings) OldEntryCutoff() time.Duration        { return s.oldEntryCutoff }
func (s Settings) OldEntryInterval() time.Duration      { return s.oldEntryInterval }
func (s Settings) OldEntryDeleteRate() time.Duration    { return s.oldEntryDeleteRate }
func (s Settings) DupPurgeDeleteRate() time.Duration    { return s.dupPurgeDeleteRate }
func (s Settings) SinkWriteRatePerSec() int             { return s.sinkWriteRatePerSec }
func (s Settings) SinkCleanerWriteRate() int            { return s.sinkCleanerWriteRate }
func (s Settings) SinkQueryRatePerSec() int             { return s.sinkQueryRatePerSec }
func (s Settings) MaxAttempt() int                      { return s.maxAttempt }
func (s Settings) BackoffInitialDuration() time.Duration { return s.backoffInitialDuration }
func (s Settings) BackoffMultiplier() float64           { return s.backoffMultiplier }
func (s Settings) BackoffMaxDuration() time.Duration    { return s.backoffMaxDuration }
func (s Settings) RandomSeed() int64                    { return s.randomSeed }
func (s Settings) UserAgent() string                    { return s.userAgent }
func (s Settings) DryRun() bool                         { return s.dryRun }
