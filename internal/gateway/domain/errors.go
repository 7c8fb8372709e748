package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when the requested row does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrProviderUnavailable means neither a deployment-level nor an
	// account-level credential exists for the bot's model provider.
	ErrProviderUnavailable = errors.New("model provider unavailable")

	// ErrInvalidCredentials means the platform rejected the credentials
	// during integration setup.
	ErrInvalidCredentials = errors.New("invalid platform credentials")
)

// DeliveryError is returned by an adapter's Send when the platform rejects
// the outbound message (invalid chat id, revoked token, rate limit). It is
// kept distinct from generic transport errors so the dispatcher can let the
// queue retry it.
type DeliveryError struct {
	Platform   Platform
	ChatID     string
	StatusCode int
	Reason     string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s delivery to chat %s failed: %s", e.Platform, e.ChatID, e.Reason)
	}
	return fmt.Sprintf("%s delivery to chat %s failed", e.Platform, e.ChatID)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDeliveryError reports whether err wraps a DeliveryError.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
