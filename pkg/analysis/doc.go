// Package analysis provides the analyzer registry and the orchestrator
// that runs a depth-dependent subset of analyzers against a text payload.
//
// Analyzers are advisory: they produce observability data only and never
// make block/allow decisions. That separation is the system's core safety
// invariant; no aggregated analyzer signal may flip a policy verdict.
//
// The registry is built once at startup by probing a static registration
// table. A registration whose constructor fails is recorded with status
// "error", one that registers without a callable implementation is
// "available", and a callable analyzer is "active". Probing never aborts
// startup, and descriptors are read-only afterwards.
//
// Processing levels select the analyzer subset: "basic" runs none,
// "standard" runs a fixed nine-analyzer set, and "detailed" runs the
// standard set followed by every remaining active analyzer in registry
// order. Level ids missing from the registry are skipped, never fatal.
//
// Analyzer failures are fail-open: a panicking or erroring analyzer
// yields a single failed Result and the remaining analyzers still run.
package analysis
