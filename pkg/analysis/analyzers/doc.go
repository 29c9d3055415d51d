// Package analyzers contains the built-in analyzer implementations and
// the static registration table probed at startup.
//
// Every analyzer here is rule-based: compiled keyword lexicons and regex
// patterns over the input text, producing a structured outcome map. The
// outcomes are advisory annotations for callers and logs; nothing in this
// package blocks, refuses, or rewrites content.
package analyzers
