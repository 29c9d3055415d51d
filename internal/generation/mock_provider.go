// Package generation holds test and development doubles for the
// generation provider contract.
package generation

import (
	"context"
	"strings"
	"sync"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/generation"
)

// MockProvider is an in-process generation.Provider for tests and the
// offline check command. It replies from a canned script or with a
// deterministic echo-free summary of the last user message.
type MockProvider struct {
	mu sync.Mutex

	// Replies are returned in order; when exhausted the provider falls
	// back to the synthesized default reply.
	Replies []string

	// Err, when set, is returned by every Complete call.
	Err error

	// Requests records every request received, oldest first.
	Requests []*generation.Request

	next int
}

// NewMockProvider returns a provider that replies with the given script.
func NewMockProvider(replies ...string) *MockProvider {
	return &MockProvider{Replies: replies}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(_ context.Context, req *generation.Request) (*generation.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if m.Err != nil {
		return nil, m.Err
	}

	content := ""
	if m.next < len(m.Replies) {
		content = m.Replies[m.next]
		m.next++
	} else {
		content = defaultReply(req)
	}

	return &generation.Result{
		Content: content,
		Model:   "mock/model",
		Usage: generation.Usage{
			PromptTokens:     promptTokens(req),
			CompletionTokens: len(strings.Fields(content)),
			TotalTokens:      promptTokens(req) + len(strings.Fields(content)),
		},
	}, nil
}

func (m *MockProvider) HealthCheck(context.Context) error { return nil }

func (m *MockProvider) Close() error { return nil }

// CallCount returns how many Complete calls the provider has seen.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// defaultReply produces a stable response that addresses the last user
// message without repeating it.
func defaultReply(req *generation.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == generation.RoleUser {
			words := len(strings.Fields(req.Messages[i].Content))
			if words == 0 {
				return "I have nothing to respond to."
			}
			return "Here is a considered response to your message."
		}
	}
	return "I have nothing to respond to."
}

func promptTokens(req *generation.Request) int {
	n := 0
	for _, msg := range req.Messages {
		n += len(strings.Fields(msg.Content))
	}
	return n
}
