package domain

import (
	"os"
	"path/filepath"
	"testing"
)

const overrideYAML = `
luxury_charter:
  stages:
    lead_capture: {probability: 0.02, sla_hours: 72}
    qualification: {probability: 0.08, sla_hours: 120}
    discovery: {probability: 0.20, sla_hours: 240}
    presentation: {probability: 0.35, sla_hours: 240}
    proposal: {probability: 0.50, sla_hours: 336}
    negotiation: {probability: 0.65, sla_hours: 336}
    closing: {probability: 0.80, sla_hours: 168}
    closed_won: {probability: 1.0}
    closed_lost: {probability: 0.0}
`

func writeTemplateFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write template file: %v", err)
	}
	return path
}

func TestLoadTemplatesWithoutFileReturnsBuiltins(t *testing.T) {
	templates, err := LoadTemplates("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := templates[TemplateB2CIndividual]; !ok {
		t.Fatal("missing b2c_individual template")
	}
	if _, ok := templates[TemplateB2BCorporate]; !ok {
		t.Fatal("missing b2b_corporate template")
	}
}

func TestLoadTemplatesMergesFileOverrides(t *testing.T) {
	path := writeTemplateFile(t, overrideYAML)

	templates, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	charter, ok := templates["luxury_charter"]
	if !ok {
		t.Fatal("file template not loaded")
	}
	if charter.Probability(StageClosing) != 0.80 {
		t.Fatalf("closing probability = %v, want 0.80", charter.Probability(StageClosing))
	}
	if charter.SLAHours(StageProposal) != 336 {
		t.Fatalf("proposal sla = %d, want 336", charter.SLAHours(StageProposal))
	}
	// Builtins survive alongside file templates.
	if templates[TemplateB2CIndividual].Probability(StageClosing) != 0.90 {
		t.Fatal("builtin template was clobbered")
	}
}

func TestLoadTemplatesRejectsUnknownStage(t *testing.T) {
	path := writeTemplateFile(t, `
broken:
  stages:
    warming_up: {probability: 0.5}
`)
	if _, err := LoadTemplates(path); err == nil {
		t.Fatal("expected unknown stage error")
	}
}

func TestLoadTemplatesRejectsIncompleteTemplate(t *testing.T) {
	path := writeTemplateFile(t, `
partial:
  stages:
    lead_capture: {probability: 0.05}
`)
	if _, err := LoadTemplates(path); err == nil {
		t.Fatal("expected missing stage error")
	}
}
