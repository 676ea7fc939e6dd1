package connection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// ConnectionStatusOutput is the user-facing projection of one stored
// connection. Token material never appears here.
type ConnectionStatusOutput struct {
	BankCode         string
	BankName         string
	Status           entity.ConnectionStatus
	LastSyncAt       *time.Time
	LastError        string
	AccountCount     int
	TransactionCount int
	LastBalance      string
	ConnectedAt      time.Time
}

// GetConnectionStatusesOutput lists a user's connections.
type GetConnectionStatusesOutput struct {
	Connections []ConnectionStatusOutput
}

// GetConnectionStatusesUseCase is the read-only projection of stored
// credential records into status objects.
type GetConnectionStatusesUseCase struct {
	vault adapter.CredentialVault
}

// NewGetConnectionStatusesUseCase creates a new GetConnectionStatusesUseCase instance.
func NewGetConnectionStatusesUseCase(vault adapter.CredentialVault) *GetConnectionStatusesUseCase {
	return &GetConnectionStatusesUseCase{vault: vault}
}

// Execute returns the secret-free status of every connection for the user.
func (uc *GetConnectionStatusesUseCase) Execute(ctx context.Context, userID uuid.UUID) (*GetConnectionStatusesOutput, error) {
	records, err := uc.vault.ListConnections(ctx, userID)
	if err != nil {
		return nil, err
	}

	output := &GetConnectionStatusesOutput{Connections: make([]ConnectionStatusOutput, 0, len(records))}
	for _, record := range records {
		output.Connections = append(output.Connections, ConnectionStatusOutput{
			BankCode:         record.BankCode,
			BankName:         record.BankName,
			Status:           record.Status,
			LastSyncAt:       record.LastSyncAt,
			LastError:        record.LastError,
			AccountCount:     record.Metadata.AccountCount,
			TransactionCount: record.Metadata.TransactionCount,
			LastBalance:      record.Metadata.LastBalance,
			ConnectedAt:      record.CreatedAt,
		})
	}
	return output, nil
}
