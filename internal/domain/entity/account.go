package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a bank account normalized from a bank's native shape.
// Accounts are matched on (user, institution, name) when re-imported, so a
// repeated sync updates rather than duplicates.
type Account struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Institution string // bank code of the owning institution
	ExternalID  string // account id as known by the bank
	Name        string
	Currency    string
	Type        string
	Subtype     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewAccount creates a new Account entity.
func NewAccount(userID uuid.UUID, institution, externalID, name, currency, accountType, subtype string) *Account {
	now := time.Now().UTC()

	return &Account{
		ID:          uuid.New(),
		UserID:      userID,
		Institution: institution,
		ExternalID:  externalID,
		Name:        name,
		Currency:    currency,
		Type:        accountType,
		Subtype:     subtype,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Balance is a point-in-time balance reported by the bank for one account.
type Balance struct {
	AccountExternalID string
	Amount            decimal.Decimal
	Currency          string
	Type              string
	CreditDebit       string
}
