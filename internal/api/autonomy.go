package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/cscx-ai/toolgate/internal/autonomy"
)

// handleGetAutonomy handles GET /api/toolgate/users/{user_id}/autonomy.
// Users without a stored policy get the default preset.
func (d *Dependencies) handleGetAutonomy(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")

	policy, err := d.Policies.Get(r.Context(), userID)
	if err != nil {
		d.Logger.Error("get autonomy policy failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to load autonomy policy"})
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

// handlePutAutonomy handles PUT /api/toolgate/users/{user_id}/autonomy.
// The body either names a preset ({"preset": "vacation"}) or carries a full
// custom policy.
func (d *Dependencies) handlePutAutonomy(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")

	var policy autonomy.Policy
	if err := readJSON(r, &policy); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body: " + err.Error()})
		return
	}

	// A bare preset name expands to the preset table (operator file merged
	// over built-ins).
	if policy.Preset != "" && policy.Preset != autonomy.PresetCustom {
		preset, ok := d.lookupPreset(policy.Preset)
		if !ok {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Unknown preset " + policy.Preset})
			return
		}
		policy = preset
	}

	if err := policy.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
		return
	}
	if err := d.Policies.Put(r.Context(), userID, policy); err != nil {
		d.Logger.Error("put autonomy policy failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to store autonomy policy"})
		return
	}

	writeJSON(w, http.StatusOK, policy)
}

func (d *Dependencies) lookupPreset(name string) (autonomy.Policy, bool) {
	if d.Presets != nil {
		p, ok := d.Presets[name]
		return p, ok
	}
	return autonomy.Preset(name)
}
