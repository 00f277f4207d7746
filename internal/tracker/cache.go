package tracker

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/strategyfactory/api/internal/model"
)

// SaveResearchOutput stores the research result both embedded in the
// state snapshot and duplicated to research_cache.json for fast reload.
func (t *Tracker) SaveResearchOutput(output *model.ResearchOutput) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.ResearchOutput = output
	t.state.ResearchCachePath = t.researchCacheFile()
	t.state.ResearchCost = output.TotalCost
	t.state.TotalCost = t.state.ResearchCost + t.state.SynthesisCost

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(t.researchCacheFile(), data, 0o644); err != nil {
		return err
	}

	if err := t.saveStateLocked(); err != nil {
		return err
	}
	log.Printf("Saved research output (%.4f cost)", output.TotalCost)
	return nil
}

// LoadResearchOutput returns the cached research result, preferring the
// dedicated cache file and falling back to the copy embedded in state.
// Old cache files predate the company name, research timestamp and mode
// fields; those are backfilled from the enclosing state, a legacy
// timestamp field, or the file's mtime. Returns nil when no cache exists.
func (t *Tracker) LoadResearchOutput() (*model.ResearchOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.researchCacheFile())
	if err != nil {
		if os.IsNotExist(err) {
			return t.state.ResearchOutput, nil
		}
		return nil, err
	}

	var output model.ResearchOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, err
	}

	if output.CompanyName == "" {
		output.CompanyName = t.state.CompanyName
	}
	if output.ResearchTimestamp == "" {
		if output.LegacyTimestamp != "" {
			output.ResearchTimestamp = output.LegacyTimestamp
		} else if info, statErr := os.Stat(t.researchCacheFile()); statErr == nil {
			output.ResearchTimestamp = info.ModTime().Format(time.RFC3339)
		}
	}
	if output.ResearchMode == "" {
		output.ResearchMode = model.ModeQuick
	}

	// Restore the research cost into state when an older snapshot lost it
	// but the cache still has it.
	if t.state.ResearchCost == 0 && output.TotalCost > 0 {
		t.state.ResearchCost = output.TotalCost
		t.state.TotalCost = t.state.ResearchCost + t.state.SynthesisCost
		if err := t.saveStateLocked(); err != nil {
			return nil, err
		}
		log.Printf("Restored research cost from cache: $%.4f", output.TotalCost)
	}

	return &output, nil
}
