package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// StoreCredentialInput carries everything needed to persist a new connection.
type StoreCredentialInput struct {
	UserID            uuid.UUID
	BankCode          string
	BankName          string
	Tokens            entity.AuthTokenBundle
	Scopes            []string
	AccountIdentifier string
	Metadata          entity.SyncMetadata
}

// RetrievedCredential is a decrypted token bundle plus its absolute expiry.
type RetrievedCredential struct {
	Record    *entity.CredentialRecord
	ExpiresAt time.Time
}

// CredentialVault owns encryption and decryption of token bundles at rest and
// all connection status transitions. No other component mutates a credential
// record directly.
type CredentialVault interface {
	// Store encrypts the token bundle and persists the credential record,
	// creating it if absent and replacing it otherwise.
	Store(ctx context.Context, input StoreCredentialInput) error

	// Retrieve decrypts and returns the stored bundle. A missing record
	// returns domainerror.ErrCredentialsNotFound; a record that cannot be
	// decrypted is logged, marked revoked, and returns
	// domainerror.ErrCredentialDecryptFailed.
	Retrieve(ctx context.Context, userID uuid.UUID, bankCode string) (*RetrievedCredential, error)

	// UpdateCredentials re-encrypts and overwrites the stored bundle.
	UpdateCredentials(ctx context.Context, userID uuid.UUID, bankCode string, tokens entity.AuthTokenBundle) error

	// UpdateConnectionStatus records the outcome of a sync attempt. It is
	// the only writer of connection status.
	UpdateConnectionStatus(ctx context.Context, userID uuid.UUID, bankCode string, status entity.ConnectionStatus, errorMessage string, metadata *entity.SyncMetadata) error

	// ListConnections returns the secret-free records for a user.
	ListConnections(ctx context.Context, userID uuid.UUID) ([]*entity.CredentialRecord, error)

	// Revoke deletes the stored record; idempotent if already absent.
	Revoke(ctx context.Context, userID uuid.UUID, bankCode string) error
}
