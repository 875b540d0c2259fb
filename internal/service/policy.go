package service

import (
	"math"
	"time"

	"tg-warden/internal/config"
)

// DurationPolicy maps a user's accumulated mute count to the duration
// of the next mute: a fixed escalation table for the first offenses,
// then geometric growth from the table's last step. Pure computation,
// no side effects.
type DurationPolicy struct {
	steps        []time.Duration
	growthFactor float64
	maxDuration  time.Duration
}

// NewDurationPolicy builds a policy from the moderation configuration
func NewDurationPolicy(cfg config.ModerationConfig) *DurationPolicy {
	return &DurationPolicy{
		steps:        cfg.MuteSteps,
		growthFactor: cfg.GrowthFactor,
		maxDuration:  cfg.MaxMuteDuration,
	}
}

// MuteDuration returns the mute duration for the given mute count.
// Counts below 1 are treated as 1. The result never decreases as the
// count grows and never exceeds the configured maximum.
func (p *DurationPolicy) MuteDuration(muteCount int) time.Duration {
	if muteCount < 1 {
		muteCount = 1
	}

	if muteCount <= len(p.steps) {
		return p.steps[muteCount-1]
	}

	last := p.steps[len(p.steps)-1]
	extra := muteCount - len(p.steps)

	// Float math keeps large exponents from overflowing int64 before
	// the cap applies
	seconds := last.Seconds() * math.Pow(p.growthFactor, float64(extra))
	if seconds >= p.maxDuration.Seconds() || math.IsInf(seconds, 1) {
		return p.maxDuration
	}

	return time.Duration(seconds * float64(time.Second))
}

// IsPermanent reports whether a duration has hit the policy's cap and
// should be treated as a permanent restriction.
func (p *DurationPolicy) IsPermanent(d time.Duration) bool {
	return d >= p.maxDuration
}

// FormatDuration renders a restriction window deterministically:
// "permanent" when there is no expiry, otherwise an absolute UTC
// timestamp. Never a relative rendering, so display cannot drift from
// the computed deadline.
func FormatDuration(until *time.Time) string {
	if until == nil {
		return "permanent"
	}
	return "until " + until.UTC().Format("2006-01-02 15:04")
}
