package pipeline

import (
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/generation"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/policy"
)

// State is a position in the per-request state machine.
type State string

const (
	StateInit        State = "INIT"
	StatePreChecked  State = "PRE_CHECKED"
	StateGenerating  State = "GENERATING"
	StateGenerated   State = "GENERATED"
	StatePostChecked State = "POST_CHECKED"
	StateDone        State = "DONE"

	// Terminal alternates.
	StateBlockedPre       State = "BLOCKED_PRE"
	StateBlockedPost      State = "BLOCKED_POST"
	StateGenerationFailed State = "GENERATION_FAILED"
)

// Status is the externally visible terminal status of one turn.
type Status string

const (
	// StatusDone marks a turn that passed both gate checks (or ran with
	// generation disabled) and produced a response.
	StatusDone Status = "done"

	// StatusBlockedPre marks input stopped by a blocking layer before any
	// external call was made.
	StatusBlockedPre Status = "blocked_pre"

	// StatusBlockedPost marks generated content stopped by a blocking
	// layer; the content is discarded and never reaches the caller.
	StatusBlockedPost Status = "blocked_post"

	// StatusRefused marks a turn stopped by the instruction-validity layer.
	StatusRefused Status = "refused"

	// StatusProtected marks a turn stopped by the integrity layer.
	StatusProtected Status = "protected"

	// StatusDegraded marks a turn where generation was requested but
	// failed; the response comes from the synthesizer instead.
	StatusDegraded Status = "degraded"
)

// Request is one call into the pipeline.
type Request struct {
	// Text is the raw user input.
	Text string `json:"text"`

	// Level selects the analysis depth. Empty falls back to the
	// pipeline's configured default.
	Level string `json:"processing_level,omitempty"`

	// UseGeneration asks for an external completion. When false the
	// synthesizer produces the response directly.
	UseGeneration bool `json:"use_generation"`

	// FollowUp, when non-empty, re-enters the state machine a second time
	// with the first turn appended to the transcript. Neither turn reuses
	// the other's check results.
	FollowUp string `json:"follow_up,omitempty"`

	// ConversationID associates the turn with a stored conversation. The
	// pipeline writes exchanges under this id but never reads history
	// from the store; callers pass prior turns via History explicitly.
	ConversationID string `json:"conversation_id,omitempty"`

	// History is the prior transcript, oldest first, supplied by the
	// caller. It is prepended to the generation request as-is.
	History []generation.Message `json:"-"`
}

// Response is the pipeline's result for one Request. It is always
// well-formed: every field reflects what actually ran, and short-circuited
// stages are absent rather than defaulted.
type Response struct {
	RequestID      string `json:"request_id"`
	ConversationID string `json:"conversation_id,omitempty"`

	// Status is the terminal status of the last turn processed.
	Status Status `json:"status"`

	// State is the machine state the last turn terminated in.
	State State `json:"state"`

	// Text is the final user-facing response.
	Text string `json:"response_text"`

	// Compliance is the pre-check record for the last turn.
	Compliance *policy.ComplianceRecord `json:"compliance"`

	// PostCompliance is the post-check record, present only when a
	// completion was produced and checked.
	PostCompliance *policy.ComplianceRecord `json:"post_compliance,omitempty"`

	// Analysis holds the pre-side analyzer results for the last turn.
	Analysis []analysis.Result `json:"analysis,omitempty"`

	// PostAnalysis holds the post-side analyzer results, when the turn
	// reached them.
	PostAnalysis []analysis.Result `json:"post_analysis,omitempty"`

	// Level is the analysis level the turn ran at, after normalization.
	Level string `json:"processing_level"`

	// GenerationUsed reports whether the response text came from the
	// external provider.
	GenerationUsed bool `json:"generation_used"`

	// Model names the upstream model when generation was used.
	Model string `json:"model,omitempty"`

	// Usage is the provider's token accounting, when reported.
	Usage *generation.Usage `json:"usage,omitempty"`
}

// Blocked reports whether the turn terminated on a gate violation.
func (s Status) Blocked() bool {
	switch s {
	case StatusBlockedPre, StatusBlockedPost, StatusRefused, StatusProtected:
		return true
	}
	return false
}
