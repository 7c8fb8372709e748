// Package modelprovider holds the language-model provider clients and the
// resolver that picks one per invocation.
package modelprovider

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one prior conversation turn passed as context.
type ChatMessage struct {
	Role    string
	Content string
}

// Request carries everything one completion call needs.
type Request struct {
	Model        string
	Temperature  float32
	SystemPrompt string
	// History is the bounded conversation window, oldest first.
	History []ChatMessage
	// Prompt is the new user text being answered.
	Prompt string
}

// Provider is a language-model backend able to produce one reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}
