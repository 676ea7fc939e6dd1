package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// StoredCredential is the at-rest shape of one (user, bank) connection: the
// token bundle is an opaque encrypted blob only the vault can open.
type StoredCredential struct {
	UserID            uuid.UUID
	BankCode          string
	BankName          string
	EncryptedTokens   string
	Scopes            []string
	AccountIdentifier string
	Status            entity.ConnectionStatus
	LastSyncAt        *time.Time
	LastError         string
	AccountCount      int
	TransactionCount  int
	LastBalance       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CredentialRepository defines the persistence contract for encrypted
// credential records, keyed by (user, bank code).
type CredentialRepository interface {
	// Save creates the record if absent, else replaces it.
	Save(ctx context.Context, credential *StoredCredential) error

	// FindByUserAndBank retrieves one record; returns
	// domainerror.ErrCredentialsNotFound when absent.
	FindByUserAndBank(ctx context.Context, userID uuid.UUID, bankCode string) (*StoredCredential, error)

	// FindByUser retrieves all records for a user.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*StoredCredential, error)

	// UpdateEncryptedTokens overwrites only the encrypted token blob.
	UpdateEncryptedTokens(ctx context.Context, userID uuid.UUID, bankCode, encryptedTokens string) error

	// UpdateStatus overwrites status, error message and sync metadata. This
	// is the distinguished frequently-called operation of the contract.
	UpdateStatus(ctx context.Context, userID uuid.UUID, bankCode string, status entity.ConnectionStatus, errorMessage string, metadata *entity.SyncMetadata) error

	// Delete removes the record; deleting an absent record is not an error.
	Delete(ctx context.Context, userID uuid.UUID, bankCode string) error
}
