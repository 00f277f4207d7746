package tracker

import (
	"encoding/json"
	"os"

	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/registry"
	"github.com/strategyfactory/api/pkg/slug"
)

// loadState deserializes state.json and runs all backward-compatibility
// defaults in one place. Compatibility rules live here and nowhere else.
func (t *Tracker) loadState() (*model.PipelineState, error) {
	data, err := os.ReadFile(t.stateFile())
	if err != nil {
		return nil, err
	}

	var state model.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	migrateState(&state)
	return &state, nil
}

// migrateState backfills fields absent from snapshots written by older
// versions:
//
//   - missing research mode defaults to quick
//   - missing company slug is derived from the company name
//   - missing cost fields default to zero; the total is recomputed as the
//     sum of the buckets so it can never drift
//   - phases map gains any phase added since the snapshot was written
//   - deliverables map gains catalog entries added since, as pending
//   - a nil error log becomes an empty one
func migrateState(state *model.PipelineState) {
	if state.Input.Mode == "" {
		state.Input.Mode = model.ModeQuick
	}
	if state.CompanySlug == "" {
		state.CompanySlug = slug.Make(state.CompanyName)
	}

	state.TotalCost = state.ResearchCost + state.SynthesisCost

	if state.Phases == nil {
		state.Phases = make(map[string]*model.PhaseProgress)
	}
	defaults := map[string]string{
		model.PhaseResearch:   "Research",
		model.PhaseSynthesis:  "Synthesis",
		model.PhaseGeneration: "Document Generation",
	}
	for _, name := range model.PhaseOrder {
		if _, ok := state.Phases[name]; !ok {
			state.Phases[name] = &model.PhaseProgress{Name: defaults[name], Status: model.StatusPending}
		}
	}
	for _, phase := range state.Phases {
		if phase.Status == "" {
			phase.Status = model.StatusPending
		}
	}

	if state.Deliverables == nil {
		state.Deliverables = make(map[string]*model.DeliverableProgress)
	}
	for _, id := range registry.IDs() {
		if _, ok := state.Deliverables[id]; !ok {
			state.Deliverables[id] = &model.DeliverableProgress{Status: model.StatusPending}
		}
	}
	for _, d := range state.Deliverables {
		if d.Status == "" {
			d.Status = model.StatusPending
		}
	}

	if state.Errors == nil {
		state.Errors = []model.ErrorEntry{}
	}
}
