package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/registry"
)

// writePhaseSummaryLocked emits the human-readable phase summary
// artifact, deriving the done/remaining lists from the deliverable map.
func (t *Tracker) writePhaseSummaryLocked(phaseName, summary string) error {
	phase := t.state.Phases[phaseName]

	var b strings.Builder
	fmt.Fprintf(&b, "# Phase Summary: %s\n\n", phase.Name)
	fmt.Fprintf(&b, "**Company:** %s\n", t.state.CompanyName)
	fmt.Fprintf(&b, "**Status:** %s\n", phase.Status)
	fmt.Fprintf(&b, "**Started:** %s\n", formatPhaseTime(phase.StartedAt))
	fmt.Fprintf(&b, "**Completed:** %s\n\n", formatPhaseTime(phase.CompletedAt))
	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", summary)

	b.WriteString("## Deliverables Completed This Phase\n\n")
	for _, id := range sortedDeliverableIDs(t.state) {
		if t.state.Deliverables[id].Status == model.StatusCompleted {
			fmt.Fprintf(&b, "- [x] %s\n", displayName(id))
		}
	}

	b.WriteString("\n## Remaining Deliverables\n\n")
	for _, id := range sortedDeliverableIDs(t.state) {
		if t.state.Deliverables[id].Status != model.StatusCompleted {
			fmt.Fprintf(&b, "- [ ] %s\n", displayName(id))
		}
	}

	path := filepath.Join(t.outputDir, fmt.Sprintf("phase_%s_summary.md", phaseName))
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// ProgressSummary reports phase statuses, deliverable completion counts
// and percentage, cost totals and the error log.
func (t *Tracker) ProgressSummary() model.ProgressSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := len(t.state.Deliverables)
	completed := 0
	pending := 0
	for _, d := range t.state.Deliverables {
		switch d.Status {
		case model.StatusCompleted:
			completed++
		case model.StatusPending, model.StatusFailed:
			pending++
		}
	}

	percent := 0.0
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}

	phases := make(map[string]model.PhaseSummary, len(t.state.Phases))
	for name, phase := range t.state.Phases {
		phases[name] = model.PhaseSummary{Status: phase.Status, Summary: phase.Summary}
	}

	return model.ProgressSummary{
		CompanyName:  t.state.CompanyName,
		CurrentPhase: t.state.CurrentPhase,
		Phases:       phases,
		Deliverables: model.DeliverableCounts{
			Total:           total,
			Completed:       completed,
			Pending:         pending,
			ProgressPercent: percent,
		},
		Costs: model.CostSummary{
			Research:  t.state.ResearchCost,
			Synthesis: t.state.SynthesisCost,
			Total:     t.state.TotalCost,
		},
		Errors: append([]model.ErrorEntry(nil), t.state.Errors...),
	}
}

func sortedDeliverableIDs(state *model.PipelineState) []string {
	ids := make([]string, 0, len(state.Deliverables))
	for id := range state.Deliverables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func displayName(id string) string {
	if info, ok := registry.Get(id); ok {
		return info.Name
	}
	return id
}

func formatPhaseTime(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006-01-02 15:04:05")
}
