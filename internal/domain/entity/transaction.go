package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction (expense or income).
type TransactionType string

const (
	TransactionTypeExpense TransactionType = "expense"
	TransactionTypeIncome  TransactionType = "income"
)

// Transaction represents a financial transaction normalized from a bank
// response or a CSV row. ExternalID is the duplicate-suppression key: bank
// transactions carry the bank's own id, CSV rows a deterministic hash.
type Transaction struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	AccountID uuid.UUID
	// ExternalAccountID is the bank-side id of the owning account, used to
	// resolve AccountID during import.
	ExternalAccountID string
	ExternalID        string
	Date              time.Time
	Description       string
	Amount            decimal.Decimal // Negative for expenses, positive for income
	Currency          string
	Type              TransactionType
	Merchant          string
	Category          string
	BalanceAfter      *decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewTransaction creates a new Transaction entity. The type is derived from
// the sign of the amount: non-negative amounts are income.
func NewTransaction(
	userID uuid.UUID,
	accountID uuid.UUID,
	externalID string,
	date time.Time,
	description string,
	amount decimal.Decimal,
	currency string,
) *Transaction {
	now := time.Now().UTC()

	txnType := TransactionTypeIncome
	if amount.IsNegative() {
		txnType = TransactionTypeExpense
	}

	return &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		AccountID:   accountID,
		ExternalID:  externalID,
		Date:        date,
		Description: description,
		Amount:      amount,
		Currency:    currency,
		Type:        txnType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
