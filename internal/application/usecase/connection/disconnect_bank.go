package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

// DisconnectBankInput represents the input for disconnecting a bank.
type DisconnectBankInput struct {
	UserID   uuid.UUID
	BankCode string
}

// DisconnectBankOutput reports whether the remote revocation succeeded. The
// local credentials are gone either way.
type DisconnectBankOutput struct {
	BankCode      string
	RemoteRevoked bool
}

// DisconnectBankUseCase removes a bank connection: best-effort remote token
// revocation followed by unconditional local credential deletion. Local state
// always converges to disconnected even when the bank is unreachable.
type DisconnectBankUseCase struct {
	registry adapter.BankRegistry
	vault    adapter.CredentialVault
}

// NewDisconnectBankUseCase creates a new DisconnectBankUseCase instance.
func NewDisconnectBankUseCase(registry adapter.BankRegistry, vault adapter.CredentialVault) *DisconnectBankUseCase {
	return &DisconnectBankUseCase{
		registry: registry,
		vault:    vault,
	}
}

// Execute revokes remotely when possible, then deletes local credentials.
func (uc *DisconnectBankUseCase) Execute(ctx context.Context, input DisconnectBankInput) (*DisconnectBankOutput, error) {
	output := &DisconnectBankOutput{BankCode: input.BankCode}

	credential, err := uc.vault.Retrieve(ctx, input.UserID, input.BankCode)
	switch {
	case err == nil:
		if bankAdapter, adapterErr := uc.registry.Get(input.BankCode); adapterErr == nil {
			if revokeErr := bankAdapter.Disconnect(ctx, credential.Record.Tokens.AccessToken); revokeErr == nil {
				output.RemoteRevoked = true
			} else {
				slog.Warn("Remote token revocation failed, deleting local credentials anyway",
					"userID", input.UserID,
					"bankCode", input.BankCode,
					"error", revokeErr,
				)
			}
		}
	case errors.Is(err, domainerror.ErrCredentialsNotFound):
		return nil, err
	default:
		// Undecryptable or otherwise unreadable credentials still get deleted.
		slog.Warn("Could not read credentials for revocation, deleting local credentials anyway",
			"userID", input.UserID,
			"bankCode", input.BankCode,
			"error", err,
		)
	}

	if err := uc.vault.Revoke(ctx, input.UserID, input.BankCode); err != nil {
		return nil, fmt.Errorf("failed to delete credentials: %w", err)
	}

	slog.Info("Bank disconnected",
		"userID", input.UserID,
		"bankCode", input.BankCode,
		"remoteRevoked", output.RemoteRevoked,
	)
	return output, nil
}
