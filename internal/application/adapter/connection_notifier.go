package adapter

import (
	"context"

	"github.com/google/uuid"
)

// ConnectionAlert describes a connection that degraded during a sync.
type ConnectionAlert struct {
	UserID   uuid.UUID
	BankCode string
	BankName string
	Status   string
	Message  string
}

// ConnectionNotifier delivers best-effort alerts when a connection degrades
// to error or expired. Delivery failure never fails the sync that raised it.
type ConnectionNotifier interface {
	NotifyConnectionDegraded(ctx context.Context, alert ConnectionAlert) error
}
