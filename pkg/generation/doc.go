// Package generation defines the text-generation provider contract and
// the OpenRouter-backed implementation.
//
// A Provider is a thin client for one upstream completion API: it sends
// a message transcript and returns the model's reply with token usage.
// Providers never see compliance state; the pipeline decides whether a
// generation call happens at all.
package generation
