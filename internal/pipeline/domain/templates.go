package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Template names shipped by default.
const (
	TemplateB2CIndividual = "b2c_individual"
	TemplateB2BCorporate  = "b2b_corporate"
)

// StageConfig carries the win probability assigned on entering a stage and
// how long a deal may sit in it before the SLA is breached.
type StageConfig struct {
	Probability float64 `yaml:"probability"`
	SLAHours    int     `yaml:"sla_hours"`
}

// Template maps each stage to its configuration for one sales motion.
type Template struct {
	Name   string                 `yaml:"name"`
	Stages map[string]StageConfig `yaml:"stages"`
}

// Templates is a named collection loaded at startup.
type Templates map[string]Template

func builtinTemplates() Templates {
	return Templates{
		TemplateB2CIndividual: {
			Name: TemplateB2CIndividual,
			Stages: map[string]StageConfig{
				StageLeadCapture:   {Probability: 0.05, SLAHours: 24},
				StageQualification: {Probability: 0.15, SLAHours: 48},
				StageDiscovery:     {Probability: 0.30, SLAHours: 72},
				StagePresentation:  {Probability: 0.45, SLAHours: 72},
				StageProposal:      {Probability: 0.60, SLAHours: 96},
				StageNegotiation:   {Probability: 0.75, SLAHours: 96},
				StageClosing:       {Probability: 0.90, SLAHours: 48},
				StageClosedWon:     {Probability: 1.0},
				StageClosedLost:    {Probability: 0.0},
			},
		},
		TemplateB2BCorporate: {
			Name: TemplateB2BCorporate,
			Stages: map[string]StageConfig{
				StageLeadCapture:   {Probability: 0.03, SLAHours: 48},
				StageQualification: {Probability: 0.10, SLAHours: 96},
				StageDiscovery:     {Probability: 0.25, SLAHours: 168},
				StagePresentation:  {Probability: 0.40, SLAHours: 168},
				StageProposal:      {Probability: 0.55, SLAHours: 240},
				StageNegotiation:   {Probability: 0.70, SLAHours: 240},
				StageClosing:       {Probability: 0.85, SLAHours: 120},
				StageClosedWon:     {Probability: 1.0},
				StageClosedLost:    {Probability: 0.0},
			},
		},
	}
}

// LoadTemplates returns the built-in templates, merged with overrides from a
// YAML file when a path is given. File templates replace built-ins wholesale
// when names collide.
func LoadTemplates(path string) (Templates, error) {
	templates := builtinTemplates()
	if path == "" {
		return templates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline templates: %w", err)
	}

	var fileTemplates map[string]Template
	if err := yaml.Unmarshal(data, &fileTemplates); err != nil {
		return nil, fmt.Errorf("parse pipeline templates: %w", err)
	}

	for name, tpl := range fileTemplates {
		tpl.Name = name
		if err := validateTemplate(tpl); err != nil {
			return nil, err
		}
		templates[name] = tpl
	}
	return templates, nil
}

func validateTemplate(tpl Template) error {
	for stage, cfg := range tpl.Stages {
		if !IsKnownStage(stage) {
			return fmt.Errorf("template %s: unknown stage %s", tpl.Name, stage)
		}
		if cfg.Probability < 0 || cfg.Probability > 1 {
			return fmt.Errorf("template %s: stage %s probability out of range", tpl.Name, stage)
		}
	}
	for _, stage := range stageOrder {
		if _, ok := tpl.Stages[stage]; !ok {
			return fmt.Errorf("template %s: missing stage %s", tpl.Name, stage)
		}
	}
	return nil
}

// Probability returns the win probability assigned on entering a stage.
func (t Template) Probability(stage string) float64 {
	return t.Stages[stage].Probability
}

// SLAHours returns the stage dwell budget, zero meaning no SLA.
func (t Template) SLAHours(stage string) int {
	return t.Stages[stage].SLAHours
}
