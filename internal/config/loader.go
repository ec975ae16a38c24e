package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/borosabel/orchestrator/pkg/domain"
)

// fileConfig mirrors the on-disk YAML layout. Metadata is nested in the
// document but flattened into DomainConfig.
type fileConfig struct {
	Metadata struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"metadata"`
	Intents         []domain.IntentDefinition            `yaml:"intents"`
	Slots           map[string][]domain.SlotDefinition   `yaml:"slots"`
	PromptTemplates map[string]string                    `yaml:"prompt_templates"`
	Skills          map[string]string                    `yaml:"skills"`
	Options         map[string]any                       `yaml:"options"`
}

// fileOptions decodes the recognized option keys; the model block stays an
// opaque map handed through to capability adapters.
type fileOptions struct {
	FallbackIntent  string         `mapstructure:"fallback_intent"`
	MaxSlotAttempts int            `mapstructure:"max_slot_attempts"`
	Model           map[string]any `mapstructure:"model"`
}

// Parse decodes a YAML domain config document. Parsing does not validate;
// pass the result through the Validator (or Manager.Load) before use.
func Parse(data []byte) (*domain.DomainConfig, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse domain config: %w", err)
	}

	var opts fileOptions
	if err := mapstructure.Decode(fc.Options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode options block: %w", err)
	}

	return &domain.DomainConfig{
		Name:            fc.Metadata.Name,
		Version:         fc.Metadata.Version,
		Intents:         fc.Intents,
		Slots:           fc.Slots,
		PromptTemplates: fc.PromptTemplates,
		Skills:          fc.Skills,
		Options: domain.Options{
			FallbackIntent:  opts.FallbackIntent,
			MaxSlotAttempts: opts.MaxSlotAttempts,
			Model:           opts.Model,
		},
	}, nil
}

// LoadFile reads and parses a YAML domain config from disk.
func LoadFile(path string) (*domain.DomainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read domain config %s: %w", path, err)
	}
	return Parse(data)
}
