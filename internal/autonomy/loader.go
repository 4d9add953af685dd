package autonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// presetFile is the on-disk shape of an operator preset file:
//
//	presets:
//	  weekend:
//	    enabled: true
//	    auto_approve_level: low_risk
//	    pause_on_high_risk: true
//	    schedule:
//	      - days: [6, 0]        # Saturday, Sunday
//	        start: "09:00"
//	        end: "18:00"
//	        override:
//	          auto_approve_level: all
type presetFile struct {
	Presets map[string]Policy `yaml:"presets"`
}

// LoadPresets reads operator-defined presets from a YAML file and merges
// them over the built-in table. File entries win on name collisions.
func LoadPresets(path string) (map[string]Policy, error) {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadPresets: %w", err)
	}

	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("LoadPresets: %w", err)
	}

	merged := Presets()
	for name, p := range f.Presets {
		p.Preset = name
		if p.AutoApproveLevel == "" {
			p.AutoApproveLevel = ApproveNone
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("LoadPresets: preset %q: %w", name, err)
		}
		merged[name] = p
	}
	return merged, nil
}
