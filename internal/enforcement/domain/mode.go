package domain

import "github.com/smallbiznis/shopfinder/internal/config"

// Mode controls whether brand checks have any effect on submissions.
type Mode string

const (
	// ModeOff skips brand logic entirely.
	ModeOff Mode = config.EnforcementOff
	// ModeShadow scores and records telemetry but never blocks or queues.
	ModeShadow Mode = config.EnforcementShadow
	// ModeEnforce blocks chains and queues borderline brands for review.
	ModeEnforce Mode = config.EnforcementEnforce
)

// ParseMode maps raw configuration onto a Mode, defaulting to enforce.
func ParseMode(raw string) Mode {
	return Mode(config.NormalizeEnforcementMode(raw))
}

func (m Mode) String() string { return string(m) }
