package providers

import (
	"context"

	"github.com/go-go-golems/flare/pkg/conversation"
)

// SendOptions carries the per-call parameters of a chat completion request.
type SendOptions struct {
	Model        string
	SystemPrompt string
	History      conversation.Conversation
	Temperature  float64
	MaxTokens    int
	Stream       bool
	// OnToken receives partial output when Stream is set. May be nil.
	OnToken func(token string)
}

// Backend is the transport a resolved provider exposes. Implementations
// live outside the core engine; the openai subpackage ships a reference
// implementation. Cancellation propagates through ctx; CancelRequest
// additionally aborts an in-flight call from another goroutine.
type Backend interface {
	SendMessage(ctx context.Context, content string, opts SendOptions) (string, error)
	GetAvailableModels(ctx context.Context) ([]string, error)
	CancelRequest()
}

// BackendFactory instantiates a backend handle for a configured provider
// entry. Injected into the Resolver so tests can stub transports.
type BackendFactory func(entry *Entry) (Backend, error)
