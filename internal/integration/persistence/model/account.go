// Package model defines database models for persistence layer.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// AccountModel represents the accounts table in the database. The unique
// index on (user, institution, name) backs the import upsert.
type AccountModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_accounts_owner_name"`
	Institution string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_accounts_owner_name"`
	Name        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_accounts_owner_name"`
	ExternalID  string    `gorm:"type:varchar(128);index"`
	Currency    string    `gorm:"type:varchar(3)"`
	Type        string    `gorm:"type:varchar(64)"`
	Subtype     string    `gorm:"type:varchar(64)"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for the AccountModel.
func (AccountModel) TableName() string {
	return "accounts"
}

// ToEntity converts an AccountModel to a domain Account entity.
func (m *AccountModel) ToEntity() *entity.Account {
	return &entity.Account{
		ID:          m.ID,
		UserID:      m.UserID,
		Institution: m.Institution,
		ExternalID:  m.ExternalID,
		Name:        m.Name,
		Currency:    m.Currency,
		Type:        m.Type,
		Subtype:     m.Subtype,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// AccountFromEntity creates an AccountModel from a domain Account entity.
func AccountFromEntity(account *entity.Account) *AccountModel {
	return &AccountModel{
		ID:          account.ID,
		UserID:      account.UserID,
		Institution: account.Institution,
		ExternalID:  account.ExternalID,
		Name:        account.Name,
		Currency:    account.Currency,
		Type:        account.Type,
		Subtype:     account.Subtype,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}
