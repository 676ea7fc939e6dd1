package connection

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// SyncAllBanksOutput aggregates the per-bank results of a full sync.
type SyncAllBanksOutput struct {
	Results []BankSyncResult
}

// BankSyncResult is the outcome of one bank's sync within a full sync run.
type BankSyncResult struct {
	BankCode string
	Synced   *SyncBankDataOutput
	Error    string
}

// SyncAllBanksUseCase synchronizes every syncable connection of a user. Banks
// are processed sequentially so each bank's independent rate limit is
// respected; one bank's failure does not stop the others.
type SyncAllBanksUseCase struct {
	vault    adapter.CredentialVault
	syncBank *SyncBankDataUseCase
}

// NewSyncAllBanksUseCase creates a new SyncAllBanksUseCase instance.
func NewSyncAllBanksUseCase(vault adapter.CredentialVault, syncBank *SyncBankDataUseCase) *SyncAllBanksUseCase {
	return &SyncAllBanksUseCase{
		vault:    vault,
		syncBank: syncBank,
	}
}

// Execute runs the sync for every connection that can still sync, aggregating
// per-bank results. Errored connections are included so a transient outage
// recovers on the next run; expired and revoked ones need the user to
// reauthorize first.
func (uc *SyncAllBanksUseCase) Execute(ctx context.Context, userID uuid.UUID) (*SyncAllBanksOutput, error) {
	connections, err := uc.vault.ListConnections(ctx, userID)
	if err != nil {
		return nil, err
	}

	output := &SyncAllBanksOutput{}
	for _, conn := range connections {
		if conn.Status == entity.ConnectionStatusExpired || conn.Status == entity.ConnectionStatusRevoked {
			continue
		}

		result := BankSyncResult{BankCode: conn.BankCode}
		synced, err := uc.syncBank.Execute(ctx, SyncBankDataInput{
			UserID:   userID,
			BankCode: conn.BankCode,
		})
		if err != nil {
			slog.Warn("Bank sync failed during full sync",
				"userID", userID,
				"bankCode", conn.BankCode,
				"error", err,
			)
			result.Error = err.Error()
		} else {
			result.Synced = synced
		}
		output.Results = append(output.Results, result)
	}
	return output, nil
}
