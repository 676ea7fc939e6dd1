package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// TransactionRepository defines the record-store contract for normalized
// transactions. Duplicate suppression is by external id per user.
type TransactionRepository interface {
	// Create inserts a new transaction.
	Create(ctx context.Context, transaction *entity.Transaction) error

	// ExistsByExternalID reports whether the user already has a transaction
	// with this external id.
	ExistsByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (bool, error)

	// CountByAccount returns how many transactions are stored for an account.
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	// FindByAccount retrieves all transactions for an account, newest first.
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*entity.Transaction, error)
}
