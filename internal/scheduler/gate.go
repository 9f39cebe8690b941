// Package scheduler runs the recurring evaluation sweeps: the general sweep,
// the critical-only sweep, and the daily digest. It owns the anti-spam gate
// and the job-runner lifecycle.
package scheduler

import (
	"time"

	"pestwatch/internal/types"
)

// Gate decision reasons, recorded in logs and the suppression metric.
const (
	ReasonSend             = "send"
	ReasonBelowMinSeverity = "below_min_severity"
	ReasonCooldown         = "cooldown"
	ReasonBelowCritical    = "below_critical"
)

// ShouldAlert applies the anti-spam gate: the assessment must meet the
// subscriber's minimum severity, and non-critical alerts must respect the
// cooldown since the last alert. CRITICAL always bypasses the cooldown.
// bypassCooldown additionally disables the cooldown check (critical-only
// sweep). The returned reason explains a false decision.
func ShouldAlert(sub types.AlertSubscription, assessment types.RiskAssessment, now time.Time, cooldown time.Duration, bypassCooldown bool) (bool, string) {
	if !assessment.Level.AtLeast(sub.MinSeverity) {
		return false, ReasonBelowMinSeverity
	}

	if assessment.Level == types.LevelCritical || bypassCooldown {
		return true, ReasonSend
	}

	if sub.LastAlertAt != nil && now.Sub(*sub.LastAlertAt) < cooldown {
		return false, ReasonCooldown
	}
	return true, ReasonSend
}
