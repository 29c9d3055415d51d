// Package policy implements the compliance gate that decides whether a
// text payload may proceed through the processing pipeline.
//
// The gate evaluates a fixed, priority-ordered set of four layers:
//
//	Priority 0: collective-harm       (block)
//	Priority 1: individual-harm      (block)
//	Priority 2: instruction-validity (refuse)
//	Priority 3: integrity            (protect)
//
// Evaluation is strictly sequential and short-circuits on the first
// non-compliant layer; verdicts for layers after the violation are absent
// from the record, never defaulted. A predicate that panics is treated as
// non-compliant (fail-closed).
//
// The same gate is applied to raw input ("pre") and to generated output
// ("post"); EvalContext.Source distinguishes the two calls.
//
// Layer rule sets can be extended with YAML rule packs loaded through a
// PackSource. The gate itself is immutable after construction; the Manager
// rebuilds a fresh gate and swaps it atomically when packs change.
package policy
