package policy

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"acadmin/internal/approval/models"
)

//go:embed defaults.yaml
var defaultRules []byte

type seedFile struct {
	Rules []models.RuleConfig `yaml:"rules"`
}

// LoadSeed reads rule defaults from path, or the embedded defaults when path is empty.
// Missing fields take the package defaults; each row is validated.
func LoadSeed(path string) ([]models.RuleConfig, error) {
	data := defaultRules
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rule seed: %w", err)
		}
		data = b
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]models.RuleConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f seedFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode rule seed: %w", err)
	}
	out := make([]models.RuleConfig, 0, len(f.Rules))
	seen := make(map[models.ActionKey]struct{}, len(f.Rules))
	for i, r := range f.Rules {
		cfg := r.Normalize()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("rule seed entry %d: %w", i, err)
		}
		if _, dup := seen[cfg.Key()]; dup {
			return nil, fmt.Errorf("rule seed entry %d: duplicate key %s", i, cfg.Key())
		}
		seen[cfg.Key()] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}

// RuleSeeder is the write side needed to apply a seed.
type RuleSeeder interface {
	InsertRuleConfigIfAbsent(ctx context.Context, cfg *models.RuleConfig) (bool, error)
}

// Seed inserts each rule not already configured and returns how many were added.
func Seed(ctx context.Context, store RuleSeeder, rules []models.RuleConfig) (int, error) {
	inserted := 0
	for i := range rules {
		ok, err := store.InsertRuleConfigIfAbsent(ctx, &rules[i])
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}
