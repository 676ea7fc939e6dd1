// Package connection contains the bank connection lifecycle use cases:
// initiating and completing the authorization flow, synchronizing data,
// importing CSV files and disconnecting.
package connection

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
)

// InitiateConnectionInput represents the input for starting a bank link.
type InitiateConnectionInput struct {
	UserID   uuid.UUID
	BankCode string
}

// InitiateConnectionOutput carries the URL the user must be redirected to.
type InitiateConnectionOutput struct {
	BankCode         string
	AuthorizationURL string
	State            string
}

// InitiateConnectionUseCase starts the OAuth2 authorization flow for a bank.
type InitiateConnectionUseCase struct {
	registry   adapter.BankRegistry
	stateStore adapter.StateStore
}

// NewInitiateConnectionUseCase creates a new InitiateConnectionUseCase instance.
func NewInitiateConnectionUseCase(registry adapter.BankRegistry, stateStore adapter.StateStore) *InitiateConnectionUseCase {
	return &InitiateConnectionUseCase{
		registry:   registry,
		stateStore: stateStore,
	}
}

// Execute builds the bank's authorization URL and records who initiated the
// flow under the CSRF state so the callback can be verified.
func (uc *InitiateConnectionUseCase) Execute(ctx context.Context, input InitiateConnectionInput) (*InitiateConnectionOutput, error) {
	bankAdapter, err := uc.registry.Get(input.BankCode)
	if err != nil {
		return nil, err
	}

	authorizationURL, state, err := bankAdapter.Authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to build authorization url: %w", err)
	}

	pending := adapter.PendingConnection{
		UserID:   input.UserID,
		BankCode: input.BankCode,
	}
	if err := uc.stateStore.Put(ctx, state, pending); err != nil {
		return nil, fmt.Errorf("failed to store pending connection: %w", err)
	}

	return &InitiateConnectionOutput{
		BankCode:         input.BankCode,
		AuthorizationURL: authorizationURL,
		State:            state,
	}, nil
}
