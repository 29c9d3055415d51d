package analyzers

import (
	"context"
	"strings"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
)

// RealtimeDecisionAnalyzer gauges how time-pressured a request is and
// whether a considered rather than immediate response is warranted.
type RealtimeDecisionAnalyzer struct {
	urgency      lexicon
	irreversible lexicon
}

func NewRealtimeDecisionAnalyzer() (analysis.Analyzer, error) {
	return &RealtimeDecisionAnalyzer{
		urgency: newLexicon(
			"right now", "immediately", "urgent", "asap", "hurry",
			"emergency", "quick",
		),
		irreversible: newLexicon(
			"permanent", "irreversible", "can't undo", "cannot undo",
			"final decision", "no going back",
		),
	}, nil
}

func (a *RealtimeDecisionAnalyzer) ID() string { return "realtime-decision" }

func (a *RealtimeDecisionAnalyzer) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	lower := strings.ToLower(text)

	urgencyHits, urgencyTerms := a.urgency.count(lower)
	irrevHits, _ := a.irreversible.count(lower)

	urgency := clamp(float64(urgencyHits) / 2.0)
	stakes := clamp(float64(irrevHits) / 2.0)

	mode := "deliberate"
	if urgency >= 0.5 && stakes < 0.5 {
		mode = "fast-path"
	}
	if stakes >= 0.5 {
		mode = "escalate"
	}

	return analysis.Outcome{
		"urgency":       urgency,
		"stakes":        stakes,
		"decision_mode": mode,
		"urgency_terms": urgencyTerms,
	}, nil
}
