package adapters

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

// credentialVault implements adapter.CredentialVault with XChaCha20-Poly1305
// encryption of the token bundle at rest. The key is loaded once at process
// start and never rotated in-process.
type credentialVault struct {
	aead           cipher.AEAD
	credentialRepo adapter.CredentialRepository
}

// NewCredentialVault creates a vault from a hex encoded 256-bit key.
func NewCredentialVault(hexKey string, credentialRepo adapter.CredentialRepository) (adapter.CredentialVault, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("vault key is not valid hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return &credentialVault{
		aead:           aead,
		credentialRepo: credentialRepo,
	}, nil
}

// Store encrypts the token bundle and persists the credential record.
func (v *credentialVault) Store(ctx context.Context, input adapter.StoreCredentialInput) error {
	encrypted, err := v.encrypt(input.Tokens)
	if err != nil {
		return err
	}

	return v.credentialRepo.Save(ctx, &adapter.StoredCredential{
		UserID:            input.UserID,
		BankCode:          input.BankCode,
		BankName:          input.BankName,
		EncryptedTokens:   encrypted,
		Scopes:            input.Scopes,
		AccountIdentifier: input.AccountIdentifier,
		Status:            entity.ConnectionStatusActive,
		AccountCount:      input.Metadata.AccountCount,
		TransactionCount:  input.Metadata.TransactionCount,
		LastBalance:       input.Metadata.LastBalance,
	})
}

// Retrieve decrypts and returns the stored bundle. A record that cannot be
// decrypted (key change, corruption) is marked revoked so the user is
// prompted to reauthorize instead of hitting the same failure every sync.
func (v *credentialVault) Retrieve(ctx context.Context, userID uuid.UUID, bankCode string) (*adapter.RetrievedCredential, error) {
	stored, err := v.credentialRepo.FindByUserAndBank(ctx, userID, bankCode)
	if err != nil {
		return nil, err
	}

	tokens, err := v.decrypt(stored.EncryptedTokens)
	if err != nil {
		slog.Error("Stored credential cannot be decrypted, marking revoked",
			"userID", userID,
			"bankCode", bankCode,
			"error", err,
		)
		if statusErr := v.credentialRepo.UpdateStatus(ctx, userID, bankCode, entity.ConnectionStatusRevoked, "credentials unreadable, reauthorization required", nil); statusErr != nil {
			slog.Error("Failed to mark unreadable credential revoked",
				"userID", userID,
				"bankCode", bankCode,
				"error", statusErr,
			)
		}
		return nil, domainerror.NewBankingError(
			domainerror.ErrCodeMissingCredential,
			"stored credentials cannot be decrypted",
			domainerror.ErrCredentialDecryptFailed,
		)
	}

	record := toCredentialRecord(stored)
	record.Tokens = *tokens
	return &adapter.RetrievedCredential{
		Record:    record,
		ExpiresAt: tokens.ExpiresAt(),
	}, nil
}

// UpdateCredentials re-encrypts and overwrites the stored bundle.
func (v *credentialVault) UpdateCredentials(ctx context.Context, userID uuid.UUID, bankCode string, tokens entity.AuthTokenBundle) error {
	encrypted, err := v.encrypt(tokens)
	if err != nil {
		return err
	}
	return v.credentialRepo.UpdateEncryptedTokens(ctx, userID, bankCode, encrypted)
}

// UpdateConnectionStatus records the outcome of a sync attempt, rejecting
// illegal lifecycle transitions.
func (v *credentialVault) UpdateConnectionStatus(ctx context.Context, userID uuid.UUID, bankCode string, status entity.ConnectionStatus, errorMessage string, metadata *entity.SyncMetadata) error {
	stored, err := v.credentialRepo.FindByUserAndBank(ctx, userID, bankCode)
	if err != nil {
		return err
	}
	if !stored.Status.CanTransitionTo(status) {
		return fmt.Errorf("illegal connection status transition %s -> %s", stored.Status, status)
	}
	return v.credentialRepo.UpdateStatus(ctx, userID, bankCode, status, errorMessage, metadata)
}

// ListConnections returns the secret-free records for a user.
func (v *credentialVault) ListConnections(ctx context.Context, userID uuid.UUID) ([]*entity.CredentialRecord, error) {
	stored, err := v.credentialRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	records := make([]*entity.CredentialRecord, 0, len(stored))
	for _, credential := range stored {
		records = append(records, toCredentialRecord(credential))
	}
	return records, nil
}

// Revoke deletes the stored record.
func (v *credentialVault) Revoke(ctx context.Context, userID uuid.UUID, bankCode string) error {
	return v.credentialRepo.Delete(ctx, userID, bankCode)
}

// encrypt seals the JSON encoded bundle with a random nonce prefixed to the
// ciphertext, base64 encoded for storage in a text column.
func (v *credentialVault) encrypt(tokens entity.AuthTokenBundle) (string, error) {
	plaintext, err := json.Marshal(tokens)
	if err != nil {
		return "", fmt.Errorf("failed to encode token bundle: %w", err)
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (v *credentialVault) decrypt(encrypted string) (*entity.AuthTokenBundle, error) {
	sealed, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("stored blob is not valid base64: %w", err)
	}
	if len(sealed) < v.aead.NonceSize() {
		return nil, fmt.Errorf("stored blob is too short")
	}

	nonce, ciphertext := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token bundle: %w", err)
	}

	var tokens entity.AuthTokenBundle
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode token bundle: %w", err)
	}
	return &tokens, nil
}

// toCredentialRecord maps a stored row to the domain record without token
// material.
func toCredentialRecord(stored *adapter.StoredCredential) *entity.CredentialRecord {
	return &entity.CredentialRecord{
		UserID:            stored.UserID,
		BankCode:          stored.BankCode,
		BankName:          stored.BankName,
		AccountIdentifier: stored.AccountIdentifier,
		Status:            stored.Status,
		LastSyncAt:        stored.LastSyncAt,
		LastError:         stored.LastError,
		Metadata: entity.SyncMetadata{
			AccountCount:     stored.AccountCount,
			TransactionCount: stored.TransactionCount,
			LastBalance:      stored.LastBalance,
		},
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}
}
