// Package synthesis turns pipeline state into user-facing text: local
// fallback responses when no generation provider runs, refusal messages
// for gate violations, and the compliance summary footer.
//
// Synthesized text never quotes the user's input back. Responses are
// composed entirely from templates and compliance state, so a gate
// violation can never leak the offending text through the response path.
package synthesis

import (
	"fmt"
	"strings"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/policy"
)

// InputType classifies what kind of message the user sent.
type InputType string

const (
	InputQuestion  InputType = "question"
	InputRequest   InputType = "request"
	InputStatement InputType = "statement"
	InputGeneral   InputType = "general"
)

var questionLeads = []string{
	"what", "who", "when", "where", "why", "how", "which",
	"can", "could", "should", "would", "is", "are", "do", "does", "did", "will",
}

var requestLeads = []string{
	"please", "help", "explain", "tell", "show", "give",
	"create", "make", "write", "generate",
}

// Classify determines the input type from its leading word and shape.
func Classify(text string) InputType {
	lower := strings.ToLower(strings.TrimSpace(text))

	for _, lead := range questionLeads {
		if strings.HasPrefix(lower, lead+" ") || lower == lead || strings.HasSuffix(lower, "?") {
			return InputQuestion
		}
	}
	for _, lead := range requestLeads {
		if strings.HasPrefix(lower, lead+" ") || lower == lead {
			return InputRequest
		}
	}
	if strings.HasSuffix(lower, ".") || len(strings.Fields(lower)) > 10 {
		return InputStatement
	}
	return InputGeneral
}

// echoSubstitute replaces an assembled fallback that came out
// character-equal to the input. It shares no template text with the
// assembled variants, so the substitution itself can never match.
const echoSubstitute = "Your message was received and reviewed in full. " +
	"Rather than restate it, I will wait for a follow-up that tells me what you need next."

// Synthesizer composes user-facing responses. The zero value is usable.
type Synthesizer struct {
	// IncludeSummary appends the compliance summary footer to fallback
	// responses when true.
	IncludeSummary bool
}

// Fallback composes a local response for a compliant request when no
// generation provider is configured. The response acknowledges the input
// by type without reproducing any of its text.
func (s *Synthesizer) Fallback(input string, record *policy.ComplianceRecord, analyzed int) string {
	var b strings.Builder

	switch Classify(input) {
	case InputQuestion:
		b.WriteString("Thank you for your question. ")
		b.WriteString("To give a complete answer I would need the external generation service enabled; ")
		b.WriteString("the question itself has been reviewed and is fine to pursue.")
	case InputRequest:
		b.WriteString("I understand the request. ")
		b.WriteString("It has passed review, but fulfilling it fully needs the external generation service enabled.")
	case InputStatement:
		b.WriteString("Thank you for sharing that. ")
		b.WriteString("I have considered the statement and reviewed its implications.")
	default:
		b.WriteString("I have received and reviewed your message. ")
		b.WriteString("For a more detailed response, enable the external generation service or add specifics.")
	}

	if s.IncludeSummary {
		b.WriteString("\n\n")
		b.WriteString(Summary(record, analyzed))
	}

	// A response must never be character-equal to the input. The
	// templates are fixed text, so an adversarial input can reproduce
	// one exactly; substitute when assembly collides.
	if out := b.String(); out != input {
		return out
	}
	return echoSubstitute
}

// Refusal composes the user-facing message for a gate violation. The
// wording depends on the action, not on the violating text.
func (s *Synthesizer) Refusal(record *policy.ComplianceRecord) string {
	if record == nil || record.OverallCompliant {
		return ""
	}

	switch record.BlockingAction {
	case policy.ActionRefuse:
		return "I can't follow that instruction: it conflicts with constraints that take precedence over instructions."
	case policy.ActionProtect:
		return "I can't help with disabling or working around safety checks."
	default:
		if record.Source == policy.SourcePost {
			return "The generated response was withheld because it did not pass review."
		}
		return "I can't help with this request because it describes potential harm."
	}
}

// Summary renders the per-principle compliance checklist appended to
// responses. It reports binary outcomes only; there are no scores.
func Summary(record *policy.ComplianceRecord, analyzed int) string {
	var b strings.Builder
	b.WriteString("Review summary:\n")
	if analyzed > 0 {
		fmt.Fprintf(&b, "- analyzed by %d evaluation systems\n", analyzed)
	}

	checks := []struct {
		label string
		layer policy.LayerID
	}{
		{"collective harm", policy.LayerCollectiveHarm},
		{"individual harm", policy.LayerIndividualHarm},
		{"instruction validity", policy.LayerInstructionValidity},
		{"integrity", policy.LayerIntegrity},
	}
	for _, c := range checks {
		verdict, ran := record.Verdict(c.layer)
		switch {
		case !ran:
			fmt.Fprintf(&b, "- %s: not evaluated\n", c.label)
		case verdict.Compliant:
			fmt.Fprintf(&b, "- %s: compliant\n", c.label)
		default:
			fmt.Fprintf(&b, "- %s: violation\n", c.label)
		}
	}

	if record.OverallCompliant {
		b.WriteString("- assessment: all principles satisfied")
	} else {
		fmt.Fprintf(&b, "- assessment: violation at %s", record.BlockingLayer)
	}
	return b.String()
}

// EchoesInput reports whether a response reproduces a meaningful span of
// the input verbatim. Used to enforce the no-echo property on synthesized
// and generated text.
func EchoesInput(response, input string) bool {
	in := strings.TrimSpace(strings.ToLower(input))
	if len(strings.Fields(in)) < 3 {
		// Short inputs collide with ordinary prose too easily to call an
		// overlap an echo.
		return false
	}
	return strings.Contains(strings.ToLower(response), in)
}
