package store

import (
	"context"
	"time"
)

// Exchange is one processed request/response pair within a conversation.
type Exchange struct {
	// ID is the exchange's unique id.
	ID string `json:"id"`

	// RequestID correlates with pipeline logs and traces.
	RequestID string `json:"request_id"`

	// Input is the raw user input.
	Input string `json:"input"`

	// Response is the final user-facing text, empty when the request was
	// blocked before synthesis.
	Response string `json:"response,omitempty"`

	// Status is the pipeline's terminal status for this exchange.
	Status string `json:"status"`

	// BlockingLayer names the gate layer that stopped the request, when
	// one did.
	BlockingLayer string `json:"blocking_layer,omitempty"`

	// Level is the analysis level the exchange ran at.
	Level string `json:"level"`

	// CreatedAt is when the exchange completed.
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is an ordered sequence of exchanges under one id.
type Conversation struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Exchanges []Exchange `json:"exchanges"`
}

// Summary is a conversation listing entry without exchange bodies.
type Summary struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExchangeCount int       `json:"exchange_count"`
}

// Store is the conversation persistence contract.
type Store interface {
	// EnsureConversation returns the conversation with the given id,
	// creating an empty one when it does not exist.
	EnsureConversation(ctx context.Context, id string) (*Conversation, error)

	// AppendExchange adds an exchange to an existing conversation.
	AppendExchange(ctx context.Context, conversationID string, ex Exchange) error

	// Get returns a conversation with all its exchanges.
	Get(ctx context.Context, id string) (*Conversation, error)

	// List returns summaries ordered by most recent update, capped at
	// limit (<=0 means no cap).
	List(ctx context.Context, limit int) ([]Summary, error)

	// Delete removes a conversation and its exchanges.
	Delete(ctx context.Context, id string) error

	// PruneBefore deletes conversations not updated since the cutoff and
	// returns how many were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Count returns the number of retained conversations.
	Count(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}
