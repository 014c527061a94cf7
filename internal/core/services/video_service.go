package services

import (
	"context"

	"github.com/google/uuid"
)

// VideoSessionProvider issues identifiers for the external call provider.
// Issuance is best effort: booking never fails because a session id could
// not be obtained, and a missing id is retried lazily on first join.
type VideoSessionProvider interface {
	NewSessionID(ctx context.Context) (string, error)
}

// UUIDVideoProvider issues opaque session identifiers locally. A real call
// provider integration can replace it behind the same interface.
type UUIDVideoProvider struct{}

// NewUUIDVideoProvider creates the default video session provider
func NewUUIDVideoProvider() *UUIDVideoProvider {
	return &UUIDVideoProvider{}
}

// NewSessionID returns a fresh opaque session identifier
func (p *UUIDVideoProvider) NewSessionID(ctx context.Context) (string, error) {
	return uuid.New().String(), nil
}
