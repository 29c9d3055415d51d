// Package pipeline runs one user turn through the full processing chain:
// policy gate on the input, advisory analysis, the external generation
// call, policy gate on the completion, and response synthesis.
//
// The pipeline is the only place these stages compose. The gate is
// authoritative and fail-closed; analyzers are advisory and fail-open;
// generation failures degrade to the synthesizer. The outermost boundary
// always returns a well-formed Response, even on total failure.
package pipeline
