package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights holds the relative weight of each scoring factor. They must sum
// to 1.0 so the total score stays on the 0-100 scale.
type Weights struct {
	Demographic float64 `yaml:"demographic"`
	Behavioral  float64 `yaml:"behavioral"`
	Engagement  float64 `yaml:"engagement"`
	Fit         float64 `yaml:"fit"`
	Urgency     float64 `yaml:"urgency"`
}

type Config struct {
	Weights          Weights  `yaml:"weights"`
	TargetCountries  []string `yaml:"target_countries"`
	TourismInterests []string `yaml:"tourism_interests"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Demographic: 0.20,
			Behavioral:  0.30,
			Engagement:  0.25,
			Fit:         0.15,
			Urgency:     0.10,
		},
		TargetCountries: []string{
			"US", "CA", "GB", "DE", "NL", "FR", "AU", "JP",
		},
		TourismInterests: []string{
			"adventure", "culture", "safari", "beach", "cruise",
			"hiking", "food", "wildlife", "wellness", "history",
		},
	}
}

// LoadConfig reads a scoring config file, falling back to defaults when the
// path is empty. Partial files inherit defaults for omitted sections.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scoring config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	sum := c.Weights.Demographic + c.Weights.Behavioral + c.Weights.Engagement + c.Weights.Fit + c.Weights.Urgency
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}
