package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// TransactionModel represents the transactions table in the database. The
// unique index on (user, external id) enforces duplicate suppression at the
// storage layer as well.
type TransactionModel struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_transactions_external"`
	AccountID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	ExternalID   string           `gorm:"type:varchar(128);not null;uniqueIndex:idx_transactions_external"`
	Date         time.Time        `gorm:"type:date;not null;index"`
	Description  string           `gorm:"type:varchar(512);not null"`
	Amount       decimal.Decimal  `gorm:"type:decimal(15,2);not null"`
	Currency     string           `gorm:"type:varchar(3)"`
	Type         string           `gorm:"type:varchar(10);not null"`
	Merchant     string           `gorm:"type:varchar(255)"`
	Category     string           `gorm:"type:varchar(128)"`
	BalanceAfter *decimal.Decimal `gorm:"type:decimal(15,2)"`
	CreatedAt    time.Time        `gorm:"not null"`
	UpdatedAt    time.Time        `gorm:"not null"`
}

// TableName returns the table name for the TransactionModel.
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToEntity converts a TransactionModel to a domain Transaction entity.
func (m *TransactionModel) ToEntity() *entity.Transaction {
	return &entity.Transaction{
		ID:           m.ID,
		UserID:       m.UserID,
		AccountID:    m.AccountID,
		ExternalID:   m.ExternalID,
		Date:         m.Date,
		Description:  m.Description,
		Amount:       m.Amount,
		Currency:     m.Currency,
		Type:         entity.TransactionType(m.Type),
		Merchant:     m.Merchant,
		Category:     m.Category,
		BalanceAfter: m.BalanceAfter,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// TransactionFromEntity creates a TransactionModel from a domain Transaction entity.
func TransactionFromEntity(transaction *entity.Transaction) *TransactionModel {
	return &TransactionModel{
		ID:           transaction.ID,
		UserID:       transaction.UserID,
		AccountID:    transaction.AccountID,
		ExternalID:   transaction.ExternalID,
		Date:         transaction.Date,
		Description:  transaction.Description,
		Amount:       transaction.Amount,
		Currency:     transaction.Currency,
		Type:         string(transaction.Type),
		Merchant:     transaction.Merchant,
		Category:     transaction.Category,
		BalanceAfter: transaction.BalanceAfter,
		CreatedAt:    transaction.CreatedAt,
		UpdatedAt:    transaction.UpdatedAt,
	}
}
