package objective

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cmc3bear/objectivegate/internal/model"
)

// Config is the on-disk objective set.
type Config struct {
	Objectives []model.Objective `yaml:"objectives"`
}

// DefaultConfig returns the built-in objective set.
func DefaultConfig() *Config {
	return &Config{
		Objectives: []model.Objective{
			{
				ID:        "s2_fps",
				Level:     model.LevelCritical,
				Name:      "Canvas frame rate",
				Unit:      "fps",
				Target:    60,
				Current:   52,
				Threshold: &model.Threshold{Min: f64(30)},
			},
			{
				ID:        "s1_safety_incidents",
				Level:     model.LevelCritical,
				Name:      "Safety incidents",
				Unit:      "count",
				Target:    0,
				Current:   0,
				Threshold: &model.Threshold{Max: f64(0)},
			},
			{
				ID:      "c1_guideline_compliance",
				Level:   model.LevelCore,
				Name:    "Guideline compliance",
				Unit:    "%",
				Target:  100,
				Current: 97,
			},
			{
				ID:      "c2_first_attempt_success",
				Level:   model.LevelCore,
				Name:    "First-attempt success",
				Unit:    "%",
				Target:  90,
				Current: 85,
			},
			{
				ID:      "g1_monthly_active_creators",
				Level:   model.LevelGrowth,
				Name:    "Monthly active creators",
				Unit:    "users",
				Target:  10000,
				Current: 4200,
			},
			{
				ID:      "g2_agent_efficiency",
				Level:   model.LevelGrowth,
				Name:    "Agent efficiency",
				Unit:    "%",
				Target:  95,
				Current: 88,
			},
		},
	}
}

func f64(v float64) *float64 { return &v }

// LoadConfig loads the objective set from a YAML file.
// Empty path falls back to ~/.objectivegate/objectives.yaml.
// Missing file returns the built-in set. Invalid YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads the objective set and returns its SHA-256 hash,
// computed over the raw YAML bytes on disk. When no file exists (built-in
// set used), the hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), emptyHash(), nil
		}
		path = filepath.Join(home, ".objectivegate", "objectives.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), emptyHash(), nil
		}
		return nil, "", fmt.Errorf("failed to read objectives config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse objectives config: %w", err)
	}
	if len(cfg.Objectives) == 0 {
		return nil, "", fmt.Errorf("objectives config %q defines no objectives", path)
	}
	for i, obj := range cfg.Objectives {
		if err := validate(obj); err != nil {
			return nil, "", fmt.Errorf("objectives config %q entry %d: %w", path, i, err)
		}
	}

	h := sha256.Sum256(data)
	return &cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}

// FromConfig builds a registry from a config, preserving file order.
func FromConfig(cfg *Config, configHash string) (*Registry, error) {
	r := NewRegistry()
	r.configHash = configHash
	for _, obj := range cfg.Objectives {
		if err := r.Register(obj); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Load is the common path: read the file (or built-in set) and build the
// registry in one step.
func Load(path string) (*Registry, error) {
	cfg, hash, err := LoadConfigWithHash(path)
	if err != nil {
		return nil, err
	}
	return FromConfig(cfg, hash)
}

func validate(obj model.Objective) error {
	if obj.ID == "" {
		return fmt.Errorf("objective ID is required")
	}
	switch obj.Level {
	case model.LevelCritical, model.LevelCore, model.LevelGrowth:
	default:
		return fmt.Errorf("objective %q: unknown level %q", obj.ID, obj.Level)
	}
	return nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}
