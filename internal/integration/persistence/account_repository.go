// Package persistence implements repository interfaces for database operations.
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

// accountRepository implements the adapter.AccountRepository interface.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance.
func NewAccountRepository(db *gorm.DB) adapter.AccountRepository {
	return &accountRepository{
		db: db,
	}
}

// Upsert updates the account matching (user, institution, name) or inserts a
// new record when none exists. The stable internal id of an existing record
// is preserved across syncs.
func (r *accountRepository) Upsert(ctx context.Context, account *entity.Account) (*entity.Account, bool, error) {
	var existing model.AccountModel
	now := time.Now().UTC()

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND institution = ? AND name = ?", account.UserID, account.Institution, account.Name).
		First(&existing)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, false, result.Error
		}

		accountModel := model.AccountFromEntity(account)
		if accountModel.ID == uuid.Nil {
			accountModel.ID = uuid.New()
		}
		accountModel.CreatedAt = now
		accountModel.UpdatedAt = now
		if err := r.db.WithContext(ctx).Create(accountModel).Error; err != nil {
			return nil, false, err
		}
		return accountModel.ToEntity(), true, nil
	}

	existing.ExternalID = account.ExternalID
	existing.Currency = account.Currency
	existing.Type = account.Type
	existing.Subtype = account.Subtype
	existing.UpdatedAt = now
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return nil, false, err
	}
	return existing.ToEntity(), false, nil
}

// FindByIDAndUser retrieves an account by its ID with an ownership check.
func (r *accountRepository) FindByIDAndUser(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*entity.Account, error) {
	var accountModel model.AccountModel
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&accountModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrAccountNotFoundOrUnauthorized
		}
		return nil, result.Error
	}
	return accountModel.ToEntity(), nil
}

// FindByUser retrieves all accounts for a given user.
func (r *accountRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Account, error) {
	var accountModels []model.AccountModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("institution ASC, name ASC").
		Find(&accountModels)
	if result.Error != nil {
		return nil, result.Error
	}

	accounts := make([]*entity.Account, len(accountModels))
	for i, am := range accountModels {
		accounts[i] = am.ToEntity()
	}
	return accounts, nil
}
