package analysis

import "context"

// Status is an analyzer's lifecycle state, fixed at probe time.
type Status string

const (
	// StatusActive marks an analyzer that constructed successfully and is
	// callable.
	StatusActive Status = "active"

	// StatusAvailable marks a registration without a callable
	// implementation (legacy or partial analyzers).
	StatusAvailable Status = "available"

	// StatusError marks a registration whose constructor failed.
	StatusError Status = "error"
)

// Descriptor describes one registered analyzer. Descriptors are created
// once at startup and never mutated during request handling.
type Descriptor struct {
	// ID is the analyzer's unique identifier.
	ID string `json:"id"`

	// Status is the probe outcome.
	Status Status `json:"status"`

	// Tags are capability labels, for introspection only.
	Tags []string `json:"tags,omitempty"`

	// Err holds the construction error message when Status is StatusError.
	Err string `json:"error,omitempty"`
}

// Outcome is an analyzer's opaque structured payload. Keys and values are
// analyzer-specific; the orchestrator never interprets them.
type Outcome map[string]any

// Context carries per-request annotations into analyzers. Analyzers must
// treat it as read-only.
type Context struct {
	// Source distinguishes pre-generation ("pre") from post-generation
	// ("post") analysis.
	Source string

	// RequestID is the pipeline request id, for correlation only.
	RequestID string

	// OriginalInput holds the raw user input on post-generation runs.
	OriginalInput string
}

// Result is the outcome of one analyzer invocation. One Result exists per
// selected analyzer per run; the orchestrator owns it for the duration of
// the request.
type Result struct {
	AnalyzerID string  `json:"analyzer_id"`
	Outcome    Outcome `json:"outcome,omitempty"`
	OK         bool    `json:"ok"`
	Error      string  `json:"error,omitempty"`
}

// Analyzer is the capability contract every analyzer implementation
// satisfies. Analyze must be a pure function of its inputs with no shared
// state between invocations.
type Analyzer interface {
	// ID returns the analyzer's unique identifier.
	ID() string

	// Analyze inspects text and returns a structured outcome.
	Analyze(ctx context.Context, text string, actx *Context) (Outcome, error)
}

// Registration is one entry in the static analyzer table.
type Registration struct {
	// ID is the analyzer's unique identifier.
	ID string

	// Tags are capability labels copied onto the descriptor.
	Tags []string

	// New constructs the analyzer. Returning (nil, nil) registers the id
	// without a callable implementation (status "available"); returning an
	// error records status "error". New is called exactly once, at probe
	// time.
	New func() (Analyzer, error)
}
