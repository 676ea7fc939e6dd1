package adapter

import (
	"context"

	"github.com/google/uuid"
)

// PendingConnection identifies who started an authorization flow and with
// which bank, stored under the CSRF state token until the callback arrives.
type PendingConnection struct {
	UserID   uuid.UUID `json:"user_id"`
	BankCode string    `json:"bank_code"`
}

// StateStore holds pending OAuth CSRF states with a bounded lifetime.
type StateStore interface {
	// Put stores the pending connection under the state token.
	Put(ctx context.Context, state string, pending PendingConnection) error

	// Take retrieves and consumes the pending connection for a state token.
	// An unknown or expired state returns domainerror.ErrInvalidState.
	Take(ctx context.Context, state string) (*PendingConnection, error)
}
