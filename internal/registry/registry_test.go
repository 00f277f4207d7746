package registry

import (
	"testing"

	"github.com/strategyfactory/api/internal/model"
)

func TestCatalogShape(t *testing.T) {
	if len(Catalog) != 17 {
		t.Errorf("catalog has %d entries, want 17", len(Catalog))
	}
	if len(MarkdownIDs())+len(DocumentIDs()) != len(Catalog) {
		t.Error("every entry must be either markdown or a binary document")
	}
	for id, d := range Catalog {
		if d.Name == "" {
			t.Errorf("%s has no display name", id)
		}
	}
}

func TestDependenciesReferToCatalogEntries(t *testing.T) {
	for id, d := range Catalog {
		for _, dep := range d.Dependencies {
			if dep == DepAllMarkdown {
				continue
			}
			if _, ok := Catalog[dep]; !ok {
				t.Errorf("%s depends on unknown entry %s", id, dep)
			}
			if Catalog[dep].Format != model.FormatMarkdown {
				t.Errorf("%s depends on non-markdown entry %s", id, dep)
			}
		}
	}
}

func TestBinaryEntriesDependOnAllMarkdown(t *testing.T) {
	for _, id := range DocumentIDs() {
		d := Catalog[id]
		found := false
		for _, dep := range d.Dependencies {
			if dep == DepAllMarkdown {
				found = true
			}
		}
		if !found {
			t.Errorf("%s should depend on %s", id, DepAllMarkdown)
		}
	}
}

func TestGet(t *testing.T) {
	if _, ok := Get("01_tech_inventory"); !ok {
		t.Error("known entry not found")
	}
	if _, ok := Get("99_unknown"); ok {
		t.Error("unknown entry reported as found")
	}
}

func TestFindByName(t *testing.T) {
	id, ok := FindByName("Executive Presentation")
	if !ok || id != "16_executive_presentation" {
		t.Errorf("FindByName = %q, %v", id, ok)
	}
	if _, ok := FindByName("No Such Deliverable"); ok {
		t.Error("unknown name reported as found")
	}

	// Names are unique, so every entry maps back to itself.
	for id, d := range Catalog {
		got, ok := FindByName(d.Name)
		if !ok || got != id {
			t.Errorf("FindByName(%q) = %q, want %q", d.Name, got, id)
		}
	}
}
