// Package chatplatform holds the per-platform adapters that translate
// between external chat APIs and the gateway's canonical shapes.
package chatplatform

import (
	"context"
	"fmt"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

// ValidationResult is the outcome of a live credential check at setup time.
type ValidationResult struct {
	Valid bool
	// Identity is the canonical platform identity (bot id, phone number id).
	Identity    string
	DisplayName string
	// Reason explains a rejection; empty when Valid.
	Reason string
}

// Adapter is the capability set each platform implements. Credentials are
// passed per call so one adapter instance serves every integration of its
// kind.
type Adapter interface {
	Kind() domain.Platform

	// ValidateCredentials round-trips with the live platform API and
	// rejects logically invalid or foreign credentials, not just malformed
	// ones. A non-nil error means the check itself could not run.
	ValidateCredentials(ctx context.Context, creds domain.Credentials) (*ValidationResult, error)

	// DecodeUpdates normalizes one raw webhook payload. Telegram payloads
	// map 1:1 to a single update; WhatsApp payloads may carry a batch, so
	// the result is always a slice. Decoding is pure: the same bytes yield
	// the same updates.
	DecodeUpdates(raw []byte) ([]domain.InboundUpdate, error)

	// Send delivers text to a chat and returns the platform message id.
	// Platform-side rejections surface as *domain.DeliveryError.
	Send(ctx context.Context, creds domain.Credentials, chatID, text string) (string, error)

	// Teardown deregisters platform-side state (webhook subscription) on
	// integration deletion. Callers treat failures as best-effort.
	Teardown(ctx context.Context, creds domain.Credentials) error
}

// WebhookRegistrar is implemented by adapters whose platform requires the
// gateway to register its webhook URL during setup.
type WebhookRegistrar interface {
	RegisterWebhook(ctx context.Context, creds domain.Credentials, url, secret string) error
}

// Registry resolves the adapter for a platform kind. It is populated once at
// startup; jobs never dispatch on platform strings beyond this single lookup.
type Registry struct {
	adapters map[domain.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
	}
	return r
}

func (r *Registry) For(platform domain.Platform) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %q", platform)
	}
	return a, nil
}
