package autonomy

import (
	"fmt"
	"time"
)

// AutoApproveLevel controls which approval-gated calls a user lets run
// without human sign-off.
type AutoApproveLevel string

const (
	ApproveNone    AutoApproveLevel = "none"
	ApproveLowRisk AutoApproveLevel = "low_risk"
	ApproveAll     AutoApproveLevel = "all"
)

// Valid reports whether l is a known level.
func (l AutoApproveLevel) Valid() bool {
	switch l {
	case ApproveNone, ApproveLowRisk, ApproveAll:
		return true
	}
	return false
}

// Policy is a user's autonomy configuration. The preset name is a label
// over the same fields, not a distinct mechanism.
type Policy struct {
	Preset             string           `json:"preset" yaml:"preset"`
	Enabled            bool             `json:"enabled" yaml:"enabled"`
	MaxSteps           int              `json:"max_steps" yaml:"max_steps"`
	AutoApproveLevel   AutoApproveLevel `json:"auto_approve_level" yaml:"auto_approve_level"`
	PauseOnHighRisk    bool             `json:"pause_on_high_risk" yaml:"pause_on_high_risk"`
	NotifyOnCompletion bool             `json:"notify_on_completion" yaml:"notify_on_completion"`
	Schedule           []Rule           `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// Override holds the subset of policy fields a schedule rule may change.
// Nil fields leave the base value untouched.
type Override struct {
	Enabled          *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	MaxSteps         *int              `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	AutoApproveLevel *AutoApproveLevel `json:"auto_approve_level,omitempty" yaml:"auto_approve_level,omitempty"`
	PauseOnHighRisk  *bool             `json:"pause_on_high_risk,omitempty" yaml:"pause_on_high_risk,omitempty"`
}

// Rule is one schedule window. Start and End are "HH:MM" local times; a
// window with End before Start crosses midnight. The first matching rule
// in the schedule wins; no match falls back to the base policy.
type Rule struct {
	Days     []time.Weekday `json:"days" yaml:"days"`
	Start    string         `json:"start" yaml:"start"`
	End      string         `json:"end" yaml:"end"`
	Override Override       `json:"override" yaml:"override"`
}

// Validate checks the policy's enums and schedule windows.
func (p *Policy) Validate() error {
	if !p.AutoApproveLevel.Valid() {
		return fmt.Errorf("invalid auto_approve_level %q", p.AutoApproveLevel)
	}
	if p.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}
	for i, r := range p.Schedule {
		if _, err := parseClock(r.Start); err != nil {
			return fmt.Errorf("schedule[%d] start: %w", i, err)
		}
		if _, err := parseClock(r.End); err != nil {
			return fmt.Errorf("schedule[%d] end: %w", i, err)
		}
		if len(r.Days) == 0 {
			return fmt.Errorf("schedule[%d]: days are required", i)
		}
		if ov := r.Override.AutoApproveLevel; ov != nil && !ov.Valid() {
			return fmt.Errorf("schedule[%d]: invalid auto_approve_level %q", i, *ov)
		}
	}
	return nil
}

// Effective resolves the schedule against the given instant and returns
// the policy in force. PauseOnHighRisk can only be raised by a rule: once
// true on the base policy, no schedule window may lower it.
func (p *Policy) Effective(at time.Time) Policy {
	eff := *p
	eff.Schedule = nil

	for _, r := range p.Schedule {
		if !r.matches(at) {
			continue
		}
		if r.Override.Enabled != nil {
			eff.Enabled = *r.Override.Enabled
		}
		if r.Override.MaxSteps != nil {
			eff.MaxSteps = *r.Override.MaxSteps
		}
		if r.Override.AutoApproveLevel != nil {
			eff.AutoApproveLevel = *r.Override.AutoApproveLevel
		}
		if r.Override.PauseOnHighRisk != nil {
			eff.PauseOnHighRisk = *r.Override.PauseOnHighRisk
		}
		break
	}

	if p.PauseOnHighRisk {
		eff.PauseOnHighRisk = true
	}
	return eff
}

func (r *Rule) matches(at time.Time) bool {
	dayOK := false
	for _, d := range r.Days {
		if at.Weekday() == d {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}

	start, err := parseClock(r.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(r.End)
	if err != nil {
		return false
	}
	now := at.Hour()*60 + at.Minute()

	if start <= end {
		return now >= start && now < end
	}
	// Window crosses midnight, e.g. 22:00–06:00.
	return now >= start || now < end
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return h*60 + m, nil
}
