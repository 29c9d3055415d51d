package analysis

import "strings"

// Level is the caller-selected processing depth.
type Level string

const (
	// LevelBasic runs no analyzers; only the policy gate applies.
	LevelBasic Level = "basic"

	// LevelStandard runs the fixed standard analyzer set.
	LevelStandard Level = "standard"

	// LevelDetailed runs the standard set plus every remaining active
	// analyzer in registry order.
	LevelDetailed Level = "detailed"
)

// StandardAnalyzers is the fixed set run at LevelStandard, in invocation
// order. Ids absent from the registry at runtime are skipped.
var StandardAnalyzers = []string{
	"ethical-processor",
	"bias-detection",
	"wellbeing-analysis",
	"context-validation",
	"dimensional-analysis",
	"metrics-calculation",
	"uncertainty-management",
	"realtime-decision",
	"value-conflict",
}

// ParseLevel normalizes a level string. Empty or unrecognized values fall
// back to LevelStandard, matching the front end's lenient contract.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelBasic:
		return LevelBasic
	case LevelDetailed:
		return LevelDetailed
	default:
		return LevelStandard
	}
}
