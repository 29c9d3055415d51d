package policy

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Pack is a YAML rule-pack overlay. Packs extend the built-in keyword and
// pattern sets of individual layers; they cannot remove built-in rules or
// change layer ordering.
//
// Pack file format:
//
//	name: customer-overrides
//	version: 1
//	layers:
//	  individual-harm:
//	    keywords: ["garrote"]
//	    patterns: ['ways to (maim|cripple)']
type Pack struct {
	// Name identifies the pack in logs and errors.
	Name string `yaml:"name"`

	// Version is the pack format version. Only version 1 is supported.
	Version int `yaml:"version"`

	// Layers maps layer ids to additional rules.
	Layers map[string]PackRules `yaml:"layers"`
}

// PackRules is the uncompiled rule extension for one layer.
type PackRules struct {
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns"`
}

// ParsePack decodes and validates a single rule pack document.
func ParsePack(data []byte, name string) (*Pack, error) {
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, &PackError{Path: name, Cause: fmt.Errorf("failed to parse pack: %w", err)}
	}

	if pack.Name == "" {
		pack.Name = name
	}
	if pack.Version == 0 {
		pack.Version = 1
	}
	if pack.Version != 1 {
		return nil, &PackError{Path: name, Cause: fmt.Errorf("unsupported pack version %d", pack.Version)}
	}

	for id, rules := range pack.Layers {
		if !knownLayer(LayerID(id)) {
			return nil, &PackError{Path: name, Cause: fmt.Errorf("unknown layer %q", id)}
		}
		// Compile once here so a bad pattern is rejected at load time,
		// not when the gate is rebuilt.
		if _, err := CompileRuleSet(rules.Keywords, rules.Patterns); err != nil {
			return nil, &PackError{Path: name, Cause: fmt.Errorf("layer %q: %w", id, err)}
		}
	}

	return &pack, nil
}

func knownLayer(id LayerID) bool {
	switch id {
	case LayerCollectiveHarm, LayerIndividualHarm, LayerInstructionValidity, LayerIntegrity:
		return true
	}
	return false
}
