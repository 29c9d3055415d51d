package policy

// LayerID identifies one of the four fixed gate layers.
type LayerID string

const (
	// LayerCollectiveHarm blocks text describing harm to a population or
	// civilization, including "inaction would cause collective harm"
	// constructions. Highest priority.
	LayerCollectiveHarm LayerID = "collective-harm"

	// LayerIndividualHarm blocks text describing harm to a specific person
	// (violence, self-harm, weapons, abuse).
	LayerIndividualHarm LayerID = "individual-harm"

	// LayerInstructionValidity refuses instructions that try to work around
	// the individual-harm constraint.
	LayerInstructionValidity LayerID = "instruction-validity"

	// LayerIntegrity protects the gate itself against attempts to disable
	// or bypass its checks.
	LayerIntegrity LayerID = "integrity"
)

// Action is the externally observable effect of a layer violation.
// All three terminate evaluation; they differ only in the recorded verdict.
type Action string

const (
	ActionBlock   Action = "block"
	ActionRefuse  Action = "refuse"
	ActionProtect Action = "protect"
)

// Source annotates which side of the generation call an evaluation covers.
type Source string

const (
	// SourcePre marks evaluation of the raw user input.
	SourcePre Source = "pre"
	// SourcePost marks evaluation of externally generated content.
	SourcePost Source = "post"
)

// EvalContext carries per-evaluation annotations into layer predicates.
// Predicates must treat it as read-only.
type EvalContext struct {
	// Source distinguishes pre-generation from post-generation checks.
	Source Source

	// RequestID is the pipeline request id, for correlation only.
	RequestID string

	// OriginalInput holds the raw user input when Source is SourcePost.
	OriginalInput string
}

// Verdict is the outcome of one layer's predicate for one text payload.
// A fresh Verdict is produced per evaluation and never shared.
type Verdict struct {
	// Compliant is false when the layer's trigger condition matched.
	Compliant bool `json:"compliant"`

	// Reason is a human-readable explanation, set when non-compliant.
	Reason string `json:"reason,omitempty"`

	// MatchedKeywords lists the keywords that triggered the layer.
	MatchedKeywords []string `json:"matched_keywords,omitempty"`

	// MatchedPatterns lists the regex patterns that triggered the layer.
	MatchedPatterns []string `json:"matched_patterns,omitempty"`
}

// LayerVerdict pairs a layer with its verdict, preserving evaluation order.
type LayerVerdict struct {
	Layer   LayerID `json:"layer"`
	Verdict Verdict `json:"verdict"`
}

// ComplianceRecord is the gate's full result for one evaluation.
//
// Invariants:
//   - OverallCompliant is true iff every layer was evaluated and compliant.
//   - BlockingLayer is set iff OverallCompliant is false, and names the
//     first (lowest priority number) non-compliant layer.
//   - PerLayer contains verdicts only for layers that actually ran;
//     layers after a violation are absent, not "compliant by default".
type ComplianceRecord struct {
	PerLayer         []LayerVerdict `json:"per_layer"`
	OverallCompliant bool           `json:"overall_compliant"`
	BlockingLayer    LayerID        `json:"blocking_layer,omitempty"`
	BlockingAction   Action         `json:"blocking_action,omitempty"`
	Reason           string         `json:"reason,omitempty"`
	Source           Source         `json:"source"`
}

// Verdict returns the recorded verdict for a layer, if that layer ran.
func (r *ComplianceRecord) Verdict(id LayerID) (Verdict, bool) {
	for _, lv := range r.PerLayer {
		if lv.Layer == id {
			return lv.Verdict, true
		}
	}
	return Verdict{}, false
}

// LayerUnevaluable is a sentinel blocking layer for synthetic records
// produced when the gate could not run at all.
const LayerUnevaluable LayerID = "unevaluable"

// Unevaluable returns a synthetic non-compliant record used when the gate
// cannot run at all. Callers must treat it exactly like a violation.
func Unevaluable(source Source, reason string) *ComplianceRecord {
	return &ComplianceRecord{
		OverallCompliant: false,
		BlockingLayer:    LayerUnevaluable,
		BlockingAction:   ActionBlock,
		Reason:           reason,
		Source:           source,
	}
}
