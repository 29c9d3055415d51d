// Package server exposes the processing pipeline over HTTP.
//
// Routes:
//
//	POST   /api/v1/process             run one turn through the pipeline
//	GET    /api/v1/analyzers           registry descriptors and statuses
//	GET    /api/v1/conversations       stored conversation summaries
//	GET    /api/v1/conversations/{id}  one conversation with exchanges
//	DELETE /api/v1/conversations/{id}  remove a conversation
//	GET    /health                     liveness
//	GET    /ready                      readiness (provider reachability)
//	GET    /metrics                    Prometheus exposition
//
// The handler chain is recovery → request id → logging → body limit →
// mux, and the server shuts down gracefully on context cancellation or
// SIGINT/SIGTERM.
package server
