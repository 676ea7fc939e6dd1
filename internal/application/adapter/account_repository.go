package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// AccountRepository defines the record-store contract for normalized accounts.
// Accounts are keyed by (user, institution, name) for upsert purposes.
type AccountRepository interface {
	// Upsert updates the account matching (user, institution, name) or
	// inserts it when absent. Returns true when a new record was created
	// and the persisted account (with its stable internal id).
	Upsert(ctx context.Context, account *entity.Account) (*entity.Account, bool, error)

	// FindByIDAndUser retrieves an account by id with an ownership check.
	FindByIDAndUser(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*entity.Account, error)

	// FindByUser retrieves all accounts for a user.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Account, error)
}
