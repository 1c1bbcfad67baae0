package resilience

import "time"

// Config bounds how hard an outbound collaborator call is retried and when
// its circuit opens. Zero fields fall back to DefaultConfig.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// ForCollaborator derives the policy used around the classifier, the fix
// generator and the event bus. Attempts below one keep the default.
func ForCollaborator(breakerEnabled bool, attempts int) Config {
	cfg := DefaultConfig()
	cfg.BreakerEnabled = breakerEnabled
	if attempts > 0 {
		cfg.RetryMaxAttempts = attempts
	}
	return cfg
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if c.RetryInitialBackoff <= 0 {
		c.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if c.RetryMaxBackoff <= 0 {
		c.RetryMaxBackoff = def.RetryMaxBackoff
	}
	c.RetryMaxBackoff = max(c.RetryMaxBackoff, c.RetryInitialBackoff)
	if c.RetryMultiplier < 1.0 {
		c.RetryMultiplier = def.RetryMultiplier
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = def.BreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return c
}

// backoff yields capped exponential waits between attempts.
type backoff struct {
	next time.Duration
	max  time.Duration
	mult float64
}

func (c Config) backoff() *backoff {
	return &backoff{next: c.RetryInitialBackoff, max: c.RetryMaxBackoff, mult: c.RetryMultiplier}
}

func (b *backoff) step() time.Duration {
	wait := min(b.next, b.max)
	b.next = min(time.Duration(float64(b.next)*b.mult), b.max)
	return wait
}
