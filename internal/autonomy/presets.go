package autonomy

// Built-in presets. A user without a stored policy gets "supervised".
const (
	PresetManual     = "manual"
	PresetSupervised = "supervised"
	PresetVacation   = "vacation"
	PresetCustom     = "custom"
)

// Presets returns the built-in preset table. Callers receive copies.
func Presets() map[string]Policy {
	return map[string]Policy{
		PresetManual: {
			Preset:             PresetManual,
			Enabled:            false,
			MaxSteps:           0,
			AutoApproveLevel:   ApproveNone,
			PauseOnHighRisk:    true,
			NotifyOnCompletion: true,
		},
		PresetSupervised: {
			Preset:             PresetSupervised,
			Enabled:            true,
			MaxSteps:           25,
			AutoApproveLevel:   ApproveLowRisk,
			PauseOnHighRisk:    true,
			NotifyOnCompletion: true,
		},
		PresetVacation: {
			Preset:             PresetVacation,
			Enabled:            true,
			MaxSteps:           100,
			AutoApproveLevel:   ApproveAll,
			PauseOnHighRisk:    true,
			NotifyOnCompletion: false,
		},
	}
}

// Preset looks up a built-in preset by name.
func Preset(name string) (Policy, bool) {
	p, ok := Presets()[name]
	return p, ok
}

// DefaultPolicy is the policy in force for users with no stored configuration.
func DefaultPolicy() Policy {
	return Presets()[PresetSupervised]
}
