package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/registry"
)

func newTestTracker(t *testing.T, company string) *Tracker {
	t.Helper()
	tr, err := New(company, t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestNewCreatesStateAndDirectories(t *testing.T) {
	base := t.TempDir()
	tr, err := New("Acme Corp", base, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if tr.DirName() != "acme-corp" {
		t.Errorf("DirName = %q, want acme-corp", tr.DirName())
	}

	for _, sub := range []string{"markdown", "mermaid_images", "presentations", "documents"} {
		if _, err := os.Stat(filepath.Join(tr.OutputDir(), sub)); err != nil {
			t.Errorf("missing subdirectory %s: %v", sub, err)
		}
	}
	if _, err := os.Stat(filepath.Join(tr.OutputDir(), "state.json")); err != nil {
		t.Errorf("state.json not persisted: %v", err)
	}

	state := tr.State()
	if len(state.Deliverables) != len(registry.Catalog) {
		t.Errorf("got %d deliverables, want %d", len(state.Deliverables), len(registry.Catalog))
	}
	for id, d := range state.Deliverables {
		if d.Status != model.StatusPending {
			t.Errorf("deliverable %s status = %s, want pending", id, d.Status)
		}
	}
	for _, name := range model.PhaseOrder {
		if state.Phases[name].Status != model.StatusPending {
			t.Errorf("phase %s status = %s, want pending", name, state.Phases[name].Status)
		}
	}
}

func TestNewVersionCreatesTimestampedDir(t *testing.T) {
	base := t.TempDir()
	tr, err := New("Acme Corp", base, Options{NewVersion: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	name := tr.DirName()
	if !strings.HasPrefix(name, "acme-corp_") {
		t.Fatalf("DirName = %q, want acme-corp_ prefix", name)
	}
	// acme-corp_YYYYMMDD_HHMMSS
	suffix := strings.TrimPrefix(name, "acme-corp_")
	if len(suffix) != len("20060102_150405") {
		t.Errorf("timestamp suffix %q has wrong shape", suffix)
	}
}

func TestNewLoadsExistingState(t *testing.T) {
	base := t.TempDir()
	tr1, err := New("Acme", base, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr1.CompleteDeliverable("01_tech_inventory", "/tmp/x.md"); err != nil {
		t.Fatalf("CompleteDeliverable: %v", err)
	}

	tr2, err := New("Acme", base, Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := tr2.State().Deliverables["01_tech_inventory"].Status; got != model.StatusCompleted {
		t.Errorf("status after reload = %s, want completed", got)
	}
}

func TestOpenByExactDirName(t *testing.T) {
	base := t.TempDir()
	tr1, err := New("Acme Corp", base, Options{NewVersion: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tr2, err := Open(tr1.DirName(), base)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if tr2.CompanyName() != "Acme Corp" {
		t.Errorf("CompanyName = %q, want Acme Corp", tr2.CompanyName())
	}
	if tr2.DirName() != tr1.DirName() {
		t.Errorf("DirName = %q, want %q", tr2.DirName(), tr1.DirName())
	}

	if _, err := Open("no-such-run", base); err == nil {
		t.Error("Open of missing run should fail")
	}
}

func TestPhaseLifecycle(t *testing.T) {
	tr := newTestTracker(t, "Acme")

	if err := tr.StartPhase(model.PhaseResearch); err != nil {
		t.Fatalf("StartPhase: %v", err)
	}
	state := tr.State()
	if state.CurrentPhase != model.PhaseResearch {
		t.Errorf("CurrentPhase = %q, want research", state.CurrentPhase)
	}
	if state.Phases[model.PhaseResearch].StartedAt == nil {
		t.Error("StartedAt not recorded")
	}

	if err := tr.CompletePhase(model.PhaseResearch, "done in 4 queries"); err != nil {
		t.Fatalf("CompletePhase: %v", err)
	}
	state = tr.State()
	phase := state.Phases[model.PhaseResearch]
	if phase.Status != model.StatusCompleted || phase.Summary != "done in 4 queries" {
		t.Errorf("phase after complete = %+v", phase)
	}

	artifact := filepath.Join(tr.OutputDir(), "phase_research_summary.md")
	data, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("summary artifact missing: %v", err)
	}
	if !strings.Contains(string(data), "done in 4 queries") {
		t.Error("summary artifact does not contain the summary text")
	}
}

func TestUnknownPhaseIsNoOp(t *testing.T) {
	tr := newTestTracker(t, "Acme")
	if err := tr.StartPhase("deployment"); err != nil {
		t.Fatalf("StartPhase unknown: %v", err)
	}
	if err := tr.FailPhase("deployment", "boom"); err != nil {
		t.Fatalf("FailPhase unknown: %v", err)
	}
	if got := len(tr.State().Errors); got != 0 {
		t.Errorf("unknown phase recorded %d errors, want 0", got)
	}
}

func TestFailPhaseRecordsError(t *testing.T) {
	tr := newTestTracker(t, "Acme")
	if err := tr.FailPhase(model.PhaseSynthesis, "api exploded"); err != nil {
		t.Fatalf("FailPhase: %v", err)
	}

	state := tr.State()
	if state.Phases[model.PhaseSynthesis].Status != model.StatusFailed {
		t.Error("phase not marked failed")
	}
	if len(state.Errors) != 1 || state.Errors[0].Error != "api exploded" {
		t.Errorf("error log = %+v", state.Errors)
	}
}

func TestUpdateDeliverableStartTimeIdempotent(t *testing.T) {
	tr := newTestTracker(t, "Acme")
	id := "01_tech_inventory"

	if err := tr.UpdateDeliverable(id, model.StatusInProgress, "", ""); err != nil {
		t.Fatalf("UpdateDeliverable: %v", err)
	}
	first := tr.State().Deliverables[id].StartedAt
	if first == nil {
		t.Fatal("StartedAt not set on first transition")
	}

	if err := tr.UpdateDeliverable(id, model.StatusInProgress, "", ""); err != nil {
		t.Fatalf("UpdateDeliverable: %v", err)
	}
	if got := tr.State().Deliverables[id].StartedAt; !got.Equal(*first) {
		t.Error("StartedAt changed on repeated transition")
	}
}

func TestDeliverableErrorIncrementsRetryCount(t *testing.T) {
	tr := newTestTracker(t, "Acme")
	id := "02_maturity_assessment"

	if err := tr.FailDeliverable(id, "timeout"); err != nil {
		t.Fatalf("FailDeliverable: %v", err)
	}
	if err := tr.UpdateDeliverable(id, model.StatusInProgress, "", "another timeout"); err != nil {
		t.Fatalf("UpdateDeliverable: %v", err)
	}

	d := tr.State().Deliverables[id]
	if d.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", d.RetryCount)
	}
	if len(tr.State().Errors) != 1 {
		t.Errorf("error log entries = %d, want 1 (only FailDeliverable appends)", len(tr.State().Errors))
	}
}

func TestPendingIncludesFailed(t *testing.T) {
	tr := newTestTracker(t, "Acme")
	if err := tr.CompleteDeliverable("01_tech_inventory", "x.md"); err != nil {
		t.Fatal(err)
	}
	if err := tr.FailDeliverable("02_maturity_assessment", "boom"); err != nil {
		t.Fatal(err)
	}

	pending := tr.PendingDeliverables()
	if contains(pending, "01_tech_inventory") {
		t.Error("completed deliverable listed as pending")
	}
	if !contains(pending, "02_maturity_assessment") {
		t.Error("failed deliverable should stay pending for retry")
	}
	if !contains(tr.CompletedDeliverables(), "01_tech_inventory") {
		t.Error("completed deliverable missing from completed list")
	}
}

func TestDependencyResolution(t *testing.T) {
	tr := newTestTracker(t, "Acme")

	// 04_use_case_library depends on 03_pain_points.
	if tr.DependenciesMet("04_use_case_library") {
		t.Error("deps met before 03_pain_points completed")
	}
	if contains(tr.ReadyDeliverables(), "04_use_case_library") {
		t.Error("not-ready deliverable listed as ready")
	}

	if err := tr.CompleteDeliverable("03_pain_points", "x.md"); err != nil {
		t.Fatal(err)
	}
	if !tr.DependenciesMet("04_use_case_library") {
		t.Error("deps not met after completing 03_pain_points")
	}
	if !contains(tr.ReadyDeliverables(), "04_use_case_library") {
		t.Error("ready deliverable missing from ready list")
	}

	// No-dependency entries are ready immediately; unknown IDs are met.
	if !contains(tr.ReadyDeliverables(), "01_tech_inventory") {
		t.Error("dependency-free deliverable should be ready")
	}
	if !tr.DependenciesMet("99_not_in_catalog") {
		t.Error("unknown deliverable should be trivially satisfied")
	}
}

func TestAllMarkdownDependency(t *testing.T) {
	tr := newTestTracker(t, "Acme")

	if tr.DependenciesMet("16_executive_presentation") {
		t.Error("ALL_MARKDOWN met with nothing completed")
	}

	for _, id := range registry.MarkdownIDs() {
		if err := tr.CompleteDeliverable(id, id+".md"); err != nil {
			t.Fatal(err)
		}
	}

	if !tr.DependenciesMet("16_executive_presentation") {
		t.Error("ALL_MARKDOWN not met with every markdown deliverable completed")
	}
	if !tr.DependenciesMet("17_strategy_document") {
		t.Error("ALL_MARKDOWN not met for strategy document")
	}
}

func TestAddCostMaintainsTotal(t *testing.T) {
	tr := newTestTracker(t, "Acme")

	if err := tr.AddCost(0.5, CostTypeResearch); err != nil {
		t.Fatal(err)
	}
	if err := tr.AddCost(1.25, "synthesis"); err != nil {
		t.Fatal(err)
	}
	if err := tr.AddCost(0.25, "anything-else"); err != nil {
		t.Fatal(err)
	}

	state := tr.State()
	if state.ResearchCost != 0.5 {
		t.Errorf("ResearchCost = %v, want 0.5", state.ResearchCost)
	}
	if state.SynthesisCost != 1.5 {
		t.Errorf("SynthesisCost = %v, want 1.5", state.SynthesisCost)
	}
	if state.TotalCost != state.ResearchCost+state.SynthesisCost {
		t.Errorf("TotalCost = %v, want sum of buckets", state.TotalCost)
	}
}

func TestResetKeepResearch(t *testing.T) {
	tr := newTestTracker(t, "Acme")

	research := &model.ResearchOutput{
		CompanyName:  "Acme",
		ResearchMode: model.ModeQuick,
		Sections:     map[string]string{"overview": "stuff"},
		TotalCost:    0.4,
	}
	if err := tr.SaveResearchOutput(research); err != nil {
		t.Fatal(err)
	}
	if err := tr.CompleteDeliverable("01_tech_inventory", "x.md"); err != nil {
		t.Fatal(err)
	}

	if err := tr.Reset(true); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	state := tr.State()
	if state.Phases[model.PhaseResearch].Status != model.StatusCompleted {
		t.Error("research phase should stay completed when research is kept")
	}
	if state.Deliverables["01_tech_inventory"].Status != model.StatusPending {
		t.Error("deliverables should reset to pending")
	}

	loaded, err := tr.LoadResearchOutput()
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || loaded.Sections["overview"] != "stuff" {
		t.Error("research output lost across reset")
	}
}

func TestResetDropResearch(t *testing.T) {
	tr := newTestTracker(t, "Acme")
	if err := tr.SaveResearchOutput(&model.ResearchOutput{CompanyName: "Acme"}); err != nil {
		t.Fatal(err)
	}

	if err := tr.Reset(false); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := tr.State().Phases[model.PhaseResearch].Status; got != model.StatusPending {
		t.Errorf("research phase = %s, want pending after full reset", got)
	}
}

func TestMigrateBackfillsOldSnapshot(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "oldco")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	// Minimal snapshot from an older version: no phases, no deliverables,
	// no mode, nil error log, stale total.
	old := map[string]interface{}{
		"company_name":         "OldCo",
		"company_slug":         "oldco",
		"input_data":           map[string]string{"name": "OldCo"},
		"total_research_cost":  0.3,
		"total_synthesis_cost": 0.2,
		"total_cost":           99.0,
	}
	data, _ := json.Marshal(old)
	if err := os.WriteFile(filepath.Join(dir, "state.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	tr, err := Open("oldco", base)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	state := tr.State()
	if state.Input.Mode != model.ModeQuick {
		t.Errorf("mode = %q, want quick default", state.Input.Mode)
	}
	if state.TotalCost != 0.5 {
		t.Errorf("TotalCost = %v, want recomputed 0.5", state.TotalCost)
	}
	if len(state.Phases) != len(model.PhaseOrder) {
		t.Errorf("phases backfilled to %d, want %d", len(state.Phases), len(model.PhaseOrder))
	}
	if len(state.Deliverables) != len(registry.Catalog) {
		t.Errorf("deliverables backfilled to %d, want %d", len(state.Deliverables), len(registry.Catalog))
	}
	if state.Errors == nil {
		t.Error("nil error log not replaced with empty slice")
	}
}

func TestLoadResearchOutputBackfillsLegacyCache(t *testing.T) {
	tr := newTestTracker(t, "Acme")

	// Legacy cache: pre-rename timestamp field, no company name, no mode.
	legacy := map[string]interface{}{
		"timestamp":  "2024-01-15T10:00:00Z",
		"sections":   map[string]string{"overview": "old data"},
		"total_cost": 0.7,
	}
	data, _ := json.Marshal(legacy)
	if err := os.WriteFile(filepath.Join(tr.OutputDir(), "research_cache.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	output, err := tr.LoadResearchOutput()
	if err != nil {
		t.Fatalf("LoadResearchOutput: %v", err)
	}
	if output.CompanyName != "Acme" {
		t.Errorf("CompanyName = %q, want backfilled Acme", output.CompanyName)
	}
	if output.ResearchTimestamp != "2024-01-15T10:00:00Z" {
		t.Errorf("ResearchTimestamp = %q, want legacy timestamp", output.ResearchTimestamp)
	}
	if output.ResearchMode != model.ModeQuick {
		t.Errorf("ResearchMode = %q, want quick default", output.ResearchMode)
	}

	// Research cost restored into state when it was zero there.
	state := tr.State()
	if state.ResearchCost != 0.7 {
		t.Errorf("ResearchCost = %v, want 0.7 restored from cache", state.ResearchCost)
	}
	if state.TotalCost != 0.7 {
		t.Errorf("TotalCost = %v, want 0.7", state.TotalCost)
	}
}

func TestLoadResearchOutputMissingReturnsNil(t *testing.T) {
	tr := newTestTracker(t, "Acme")
	output, err := tr.LoadResearchOutput()
	if err != nil {
		t.Fatalf("LoadResearchOutput: %v", err)
	}
	if output != nil {
		t.Errorf("output = %+v, want nil when nothing cached", output)
	}
}

func TestProgressSummary(t *testing.T) {
	tr := newTestTracker(t, "Acme")
	if err := tr.CompleteDeliverable("01_tech_inventory", "x.md"); err != nil {
		t.Fatal(err)
	}
	if err := tr.AddCost(0.5, CostTypeResearch); err != nil {
		t.Fatal(err)
	}

	sum := tr.ProgressSummary()
	if sum.CompanyName != "Acme" {
		t.Errorf("CompanyName = %q", sum.CompanyName)
	}
	if sum.Deliverables.Completed != 1 {
		t.Errorf("Completed = %d, want 1", sum.Deliverables.Completed)
	}
	if sum.Deliverables.Total != len(registry.Catalog) {
		t.Errorf("Total = %d, want %d", sum.Deliverables.Total, len(registry.Catalog))
	}
	wantPct := float64(1) / float64(len(registry.Catalog)) * 100
	if sum.Deliverables.ProgressPercent != wantPct {
		t.Errorf("ProgressPercent = %v, want %v", sum.Deliverables.ProgressPercent, wantPct)
	}
	if sum.Costs.Research != 0.5 || sum.Costs.Total != 0.5 {
		t.Errorf("Costs = %+v", sum.Costs)
	}
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
