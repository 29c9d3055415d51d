package policy

import "fmt"

// Default rule data for the four built-in layers. Rule packs extend these
// sets; they can never remove entries.
var (
	defaultCollectiveKeywords = []string{
		"genocide", "extinction", "mass destruction", "existential threat",
		"destroy all humans", "end humanity", "global catastrophe",
		"wipe out humanity", "eliminate humans", "humanity destruction",
		"apocalypse", "armageddon", "end of civilization", "human extinction",
	}

	defaultCollectivePatterns = []string{
		`how to (destroy|eliminate|wipe out) (all )?humans`,
		`plan for (humanity's )?extinction`,
		`cause a global (catastrophe|extinction event)`,
		`end (all )?human(ity|s)`,
		`destroy (the )?human race`,
		`by (doing nothing|inaction).{0,40}(humanity|civilization) (suffers|is harmed|comes to harm)`,
	}

	defaultIndividualKeywords = []string{
		"harm", "hurt", "kill", "violence", "attack", "destroy", "hate",
		"self-harm", "suicide", "murder", "assault", "abuse", "torture",
		"illegal", "dangerous", "weapon", "explosive", "poison",
	}

	defaultIndividualPatterns = []string{
		`how to (harm|hurt|kill|attack)`,
		`instructions for (violence|illegal)`,
		`ways to (cause harm|inflict pain)`,
	}

	defaultInstructionKeywords = []string{
		"do it anyway", "ignore your refusal", "answer anyway",
		"just this once", "make an exception",
	}

	defaultInstructionPatterns = []string{
		`(pretend|roleplay|imagine|hypothetically).{0,60}(kill|harm|hurt|attack|weapon|poison)`,
		`(even if|regardless of) (it'?s? )?(harmful|dangerous|against the rules)`,
		`(rephrase|reword|disguise).{0,40}(blocked|refused|harmful) (request|instruction)`,
	}

	defaultIntegrityKeywords = []string{
		"bypass safety", "ignore ethical", "disable protection",
		"remove safeguards", "hack system", "exploit vulnerability",
		"disable your filters", "turn off your safety",
	}

	defaultIntegrityPatterns = []string{
		`trick.{0,40}(safety|ethical)`,
		`(modify|rewrite|overwrite) your (own )?(rules|principles|safety)`,
		`accept (this|an) (unsafe|unchecked) (update|modification)`,
	}
)

// layerRules maps each layer to its merged rule set for one gate build.
type layerRules struct {
	collective  *RuleSet
	individual  *RuleSet
	instruction *RuleSet
	integrity   *RuleSet
}

func defaultLayerRules() *layerRules {
	return &layerRules{
		collective:  MustCompileRuleSet(defaultCollectiveKeywords, defaultCollectivePatterns),
		individual:  MustCompileRuleSet(defaultIndividualKeywords, defaultIndividualPatterns),
		instruction: MustCompileRuleSet(defaultInstructionKeywords, defaultInstructionPatterns),
		integrity:   MustCompileRuleSet(defaultIntegrityKeywords, defaultIntegrityPatterns),
	}
}

// buildLayers constructs the four fixed layers over the given rule sets,
// in priority order.
func buildLayers(rules *layerRules) []Layer {
	return []Layer{
		{
			ID:        LayerCollectiveHarm,
			Priority:  0,
			Action:    ActionBlock,
			Predicate: matchPredicate(rules.collective, "collective-harm content detected"),
		},
		{
			ID:        LayerIndividualHarm,
			Priority:  1,
			Action:    ActionBlock,
			Predicate: matchPredicate(rules.individual, "harmful intent toward a person detected"),
		},
		{
			ID:        LayerInstructionValidity,
			Priority:  2,
			Action:    ActionRefuse,
			Predicate: matchPredicate(rules.instruction, "instruction conflicts with the harm constraint"),
		},
		{
			ID:        LayerIntegrity,
			Priority:  3,
			Action:    ActionProtect,
			Predicate: matchPredicate(rules.integrity, "attempt to compromise safety checks detected"),
		},
	}
}

// matchPredicate wraps a rule set as a layer predicate. The trigger
// condition is any keyword or pattern match.
func matchPredicate(rules *RuleSet, reason string) Predicate {
	return func(text string, _ *EvalContext) Verdict {
		keywords, patterns := rules.Match(text)
		if len(keywords) == 0 && len(patterns) == 0 {
			return Verdict{Compliant: true}
		}
		return Verdict{
			Compliant:       false,
			Reason:          reason,
			MatchedKeywords: keywords,
			MatchedPatterns: patterns,
		}
	}
}

// mergePacks folds rule packs into the default rules.
func mergePacks(packs []*Pack) (*layerRules, error) {
	rules := defaultLayerRules()

	for _, pack := range packs {
		for id, rs := range pack.Layers {
			compiled, err := CompileRuleSet(rs.Keywords, rs.Patterns)
			if err != nil {
				return nil, fmt.Errorf("pack %q layer %q: %w", pack.Name, id, err)
			}
			switch LayerID(id) {
			case LayerCollectiveHarm:
				rules.collective = rules.collective.Merge(compiled)
			case LayerIndividualHarm:
				rules.individual = rules.individual.Merge(compiled)
			case LayerInstructionValidity:
				rules.instruction = rules.instruction.Merge(compiled)
			case LayerIntegrity:
				rules.integrity = rules.integrity.Merge(compiled)
			default:
				return nil, fmt.Errorf("pack %q references unknown layer %q", pack.Name, id)
			}
		}
	}

	return rules, nil
}
