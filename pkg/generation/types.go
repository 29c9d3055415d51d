package generation

// Role values for transcript messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a completion transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a completion request. Model and MaxTokens fall back to the
// provider's configured defaults when zero.
type Request struct {
	// Messages is the full transcript, oldest first. The caller owns
	// transcript assembly, including any system preamble.
	Messages []Message

	// Model overrides the provider's default model for this request.
	Model string

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// Reasoning asks the upstream model to include its reasoning trace
	// when the model supports it.
	Reasoning bool
}

// Usage is the upstream token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is a completed generation.
type Result struct {
	// Content is the assistant message text.
	Content string

	// Model is the model that produced the completion.
	Model string

	// Usage is the token accounting reported upstream.
	Usage Usage

	// Reasoning holds the model's reasoning trace when requested and
	// supported; empty otherwise.
	Reasoning string
}
