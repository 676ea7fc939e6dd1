package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/persistence/model"
)

// credentialRepository implements the adapter.CredentialRepository interface.
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new credential repository instance.
func NewCredentialRepository(db *gorm.DB) adapter.CredentialRepository {
	return &credentialRepository{
		db: db,
	}
}

// Save creates the credential record for (user, bank) or replaces the
// existing one. Reconnecting to a bank overwrites whatever was stored before.
func (r *credentialRepository) Save(ctx context.Context, credential *adapter.StoredCredential) error {
	now := time.Now().UTC()

	var existing model.CredentialModel
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND bank_code = ?", credential.UserID, credential.BankCode).
		First(&existing)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}

		credentialModel := model.CredentialFromStored(credential)
		credentialModel.CreatedAt = now
		credentialModel.UpdatedAt = now
		return r.db.WithContext(ctx).Create(credentialModel).Error
	}

	credentialModel := model.CredentialFromStored(credential)
	credentialModel.CreatedAt = existing.CreatedAt
	credentialModel.UpdatedAt = now
	return r.db.WithContext(ctx).Save(credentialModel).Error
}

// FindByUserAndBank retrieves the credential record for (user, bank).
func (r *credentialRepository) FindByUserAndBank(ctx context.Context, userID uuid.UUID, bankCode string) (*adapter.StoredCredential, error) {
	var credentialModel model.CredentialModel
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND bank_code = ?", userID, bankCode).
		First(&credentialModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrCredentialsNotFound
		}
		return nil, result.Error
	}
	return credentialModel.ToStored(), nil
}

// FindByUser retrieves all credential records for a user.
func (r *credentialRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*adapter.StoredCredential, error) {
	var credentialModels []model.CredentialModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("bank_code ASC").
		Find(&credentialModels)
	if result.Error != nil {
		return nil, result.Error
	}

	credentials := make([]*adapter.StoredCredential, len(credentialModels))
	for i, cm := range credentialModels {
		credentials[i] = cm.ToStored()
	}
	return credentials, nil
}

// UpdateEncryptedTokens overwrites only the encrypted token blob.
func (r *credentialRepository) UpdateEncryptedTokens(ctx context.Context, userID uuid.UUID, bankCode, encryptedTokens string) error {
	result := r.db.WithContext(ctx).
		Model(&model.CredentialModel{}).
		Where("user_id = ? AND bank_code = ?", userID, bankCode).
		Updates(map[string]interface{}{
			"encrypted_tokens": encryptedTokens,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerror.ErrCredentialsNotFound
	}
	return nil
}

// UpdateStatus overwrites the connection status, error message and sync
// metadata. A sync timestamp is recorded on every call; the counters are
// touched only when metadata is provided.
func (r *credentialRepository) UpdateStatus(ctx context.Context, userID uuid.UUID, bankCode string, status entity.ConnectionStatus, errorMessage string, metadata *entity.SyncMetadata) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       string(status),
		"last_error":   errorMessage,
		"last_sync_at": now,
		"updated_at":   now,
	}
	if metadata != nil {
		updates["account_count"] = metadata.AccountCount
		updates["transaction_count"] = metadata.TransactionCount
		updates["last_balance"] = metadata.LastBalance
	}

	result := r.db.WithContext(ctx).
		Model(&model.CredentialModel{}).
		Where("user_id = ? AND bank_code = ?", userID, bankCode).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerror.ErrCredentialsNotFound
	}
	return nil
}

// Delete removes the credential record. Deleting an absent record is a no-op.
func (r *credentialRepository) Delete(ctx context.Context, userID uuid.UUID, bankCode string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND bank_code = ?", userID, bankCode).
		Delete(&model.CredentialModel{})
	if result.Error != nil {
		return result.Error
	}
	return nil
}
