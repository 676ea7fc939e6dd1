package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// CredentialModel represents the bank_credentials table in the database: one
// row per (user, bank) holding the encrypted token blob plus status and sync
// metadata. Scopes are stored in Postgres array-literal form so the column
// stays a plain text type across dialects.
type CredentialModel struct {
	UserID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	BankCode          string         `gorm:"type:varchar(64);primaryKey"`
	BankName          string         `gorm:"type:varchar(255)"`
	EncryptedTokens   string         `gorm:"type:text;not null"`
	Scopes            pq.StringArray `gorm:"type:text"`
	AccountIdentifier string         `gorm:"type:varchar(255)"`
	Status            string         `gorm:"type:varchar(16);not null;index"`
	LastSyncAt        *time.Time     `gorm:"type:timestamp"`
	LastError         string         `gorm:"type:text"`
	AccountCount      int            `gorm:"default:0"`
	TransactionCount  int            `gorm:"default:0"`
	LastBalance       string         `gorm:"type:varchar(64)"`
	CreatedAt         time.Time      `gorm:"not null"`
	UpdatedAt         time.Time      `gorm:"not null"`
}

// TableName returns the table name for the CredentialModel.
func (CredentialModel) TableName() string {
	return "bank_credentials"
}

// ToStored converts a CredentialModel to the repository contract shape.
func (m *CredentialModel) ToStored() *adapter.StoredCredential {
	return &adapter.StoredCredential{
		UserID:            m.UserID,
		BankCode:          m.BankCode,
		BankName:          m.BankName,
		EncryptedTokens:   m.EncryptedTokens,
		Scopes:            m.Scopes,
		AccountIdentifier: m.AccountIdentifier,
		Status:            entity.ConnectionStatus(m.Status),
		LastSyncAt:        m.LastSyncAt,
		LastError:         m.LastError,
		AccountCount:      m.AccountCount,
		TransactionCount:  m.TransactionCount,
		LastBalance:       m.LastBalance,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// CredentialFromStored creates a CredentialModel from the repository contract shape.
func CredentialFromStored(credential *adapter.StoredCredential) *CredentialModel {
	return &CredentialModel{
		UserID:            credential.UserID,
		BankCode:          credential.BankCode,
		BankName:          credential.BankName,
		EncryptedTokens:   credential.EncryptedTokens,
		Scopes:            credential.Scopes,
		AccountIdentifier: credential.AccountIdentifier,
		Status:            string(credential.Status),
		LastSyncAt:        credential.LastSyncAt,
		LastError:         credential.LastError,
		AccountCount:      credential.AccountCount,
		TransactionCount:  credential.TransactionCount,
		LastBalance:       credential.LastBalance,
		CreatedAt:         credential.CreatedAt,
		UpdatedAt:         credential.UpdatedAt,
	}
}
