package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/pipeline"
	"github.com/strategyfactory/api/internal/registry"
)

// GenerationOrchestrator implements pipeline.Generator. It assembles the
// synthesized markdown into the executive presentation and the full
// strategy document inside the run directory.
type GenerationOrchestrator struct {
	outputBase string
}

func NewGenerationOrchestrator(outputBase string) *GenerationOrchestrator {
	return &GenerationOrchestrator{outputBase: outputBase}
}

// GenerateAll produces every binary-format catalog entry. Artifact names
// match the catalog's declared names so the caller can map them back to
// their IDs.
func (o *GenerationOrchestrator) GenerateAll(dirName string, input model.CompanyInput, research *model.ResearchOutput, synthesis *model.SynthesisOutput, progress pipeline.ProgressFunc) (*model.GenerationResult, error) {
	runDir := filepath.Join(o.outputBase, dirName)
	sections, err := o.collectMarkdown(runDir, synthesis)
	if err != nil {
		return nil, err
	}

	docIDs := registry.DocumentIDs()
	sort.Strings(docIDs)

	result := &model.GenerationResult{}
	for i, id := range docIDs {
		entry, ok := registry.Get(id)
		if !ok {
			continue
		}
		if progress != nil {
			progress(fmt.Sprintf("Creating: %s", entry.Name), float64(i)/float64(len(docIDs)))
		}

		var path string
		switch entry.Format {
		case model.FormatPresentation:
			path, err = o.writePresentation(runDir, id, entry, input, sections)
		case model.FormatDocument:
			path, err = o.writeDocument(runDir, id, entry, input, research, sections)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", id, err)
		}
		result.Deliverables = append(result.Deliverables, model.GeneratedFile{
			Name: entry.Name,
			Path: path,
		})
	}

	if progress != nil {
		progress("Generation finished", 1.0)
	}
	return result, nil
}

// collectMarkdown gathers deliverable content, preferring the freshly
// synthesized batch and falling back to the files a previous run saved.
func (o *GenerationOrchestrator) collectMarkdown(runDir string, synthesis *model.SynthesisOutput) (map[string]string, error) {
	sections := make(map[string]string)
	if synthesis != nil {
		for id, content := range synthesis.Deliverables {
			sections[id] = content
		}
	}

	mdDir := filepath.Join(runDir, "markdown")
	for _, id := range registry.MarkdownIDs() {
		if _, ok := sections[id]; ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(mdDir, id+".md"))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read deliverable %s: %w", id, err)
		}
		sections[id] = string(data)
	}
	return sections, nil
}

func (o *GenerationOrchestrator) writePresentation(runDir, id string, entry registry.Deliverable, input model.CompanyInput, sections map[string]string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nAI Strategy for %s\n\n", entry.Name, input.Name)
	for _, secID := range sortedIDs(sections) {
		secEntry, ok := registry.Get(secID)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "--- slide: %s ---\n%s\n\n", secEntry.Name, firstLines(sections[secID], 12))
	}

	path := filepath.Join(runDir, "presentations", id+".pptx")
	if err := writeArtifact(path, b.String()); err != nil {
		return "", err
	}
	return path, nil
}

func (o *GenerationOrchestrator) writeDocument(runDir, id string, entry registry.Deliverable, input model.CompanyInput, research *model.ResearchOutput, sections map[string]string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nAI Strategy for %s\n\n", entry.Name, input.Name)
	if research != nil {
		fmt.Fprintf(&b, "Research conducted %s in %s mode (%d queries).\n\n",
			research.ResearchTimestamp, research.ResearchMode, research.QueryCount)
	}
	for _, secID := range sortedIDs(sections) {
		secEntry, ok := registry.Get(secID)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s\n%s\n\n%s\n\n", secEntry.Name, strings.Repeat("=", len(secEntry.Name)), sections[secID])
	}

	path := filepath.Join(runDir, "documents", id+".docx")
	if err := writeArtifact(path, b.String()); err != nil {
		return "", err
	}
	return path, nil
}

func writeArtifact(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func sortedIDs(sections map[string]string) []string {
	ids := make([]string, 0, len(sections))
	for id := range sections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func firstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
