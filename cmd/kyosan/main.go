// Kyosan Ethics Engine gates free-text input and generated completions
// through an ordered policy gate, runs a configurable battery of advisory
// analyzers, and synthesizes a response when generation is disabled or
// rejected.
//
// Usage:
//
//	# Start the server with the default configuration
//	kyosan run
//
//	# Start with a custom configuration file
//	kyosan run --config /etc/kyosan/config.yaml
//
//	# Evaluate one text without starting a server
//	kyosan check "What are the principles of responsible AI?"
//
//	# List registered analyzers and their statuses
//	kyosan analyzers
//
//	# Show version information
//	kyosan version
package main

func main() {
	Execute()
}
