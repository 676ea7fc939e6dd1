package connection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

// CompleteConnectionInput represents the OAuth callback parameters.
type CompleteConnectionInput struct {
	BankCode string
	Code     string
	State    string
}

// CompleteConnectionOutput describes the newly established connection.
type CompleteConnectionOutput struct {
	BankCode string
	BankName string
	Status   entity.ConnectionStatus
}

// CompleteConnectionUseCase finishes the OAuth2 handshake: it verifies the
// CSRF state, exchanges the authorization code, tests the tokens, stores the
// encrypted credential record and runs the first data sync.
type CompleteConnectionUseCase struct {
	registry   adapter.BankRegistry
	stateStore adapter.StateStore
	vault      adapter.CredentialVault
	sync       *SyncBankDataUseCase
}

// NewCompleteConnectionUseCase creates a new CompleteConnectionUseCase instance.
func NewCompleteConnectionUseCase(
	registry adapter.BankRegistry,
	stateStore adapter.StateStore,
	vault adapter.CredentialVault,
	sync *SyncBankDataUseCase,
) *CompleteConnectionUseCase {
	return &CompleteConnectionUseCase{
		registry:   registry,
		stateStore: stateStore,
		vault:      vault,
		sync:       sync,
	}
}

// Execute verifies and consumes the state, exchanges the code for tokens,
// persists the connection as active and imports its data.
func (uc *CompleteConnectionUseCase) Execute(ctx context.Context, input CompleteConnectionInput) (*CompleteConnectionOutput, error) {
	pending, err := uc.stateStore.Take(ctx, input.State)
	if err != nil {
		return nil, err
	}
	if pending.BankCode != input.BankCode {
		return nil, domainerror.NewBankingError(
			domainerror.ErrCodeInvalidState,
			"authorization state does not belong to this bank",
			domainerror.ErrInvalidState,
		)
	}

	bankAdapter, err := uc.registry.Get(input.BankCode)
	if err != nil {
		return nil, err
	}

	tokens, err := bankAdapter.ExchangeCode(ctx, input.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	// Tokens are tested before they are trusted; a failure here means
	// nothing gets stored and the user must restart the flow.
	if err := bankAdapter.TestConnection(ctx, tokens.AccessToken); err != nil {
		return nil, fmt.Errorf("connection verification failed: %w", err)
	}

	info := bankAdapter.Info()

	// Sizing pass: fetch once to record how much data this connection holds
	// before the credential record exists.
	data, err := uc.registry.SyncAccountData(ctx, info.Code, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("connection verification failed: %w", err)
	}

	if err := uc.vault.Store(ctx, adapter.StoreCredentialInput{
		UserID:   pending.UserID,
		BankCode: info.Code,
		BankName: info.Name,
		Tokens:   *tokens,
		Metadata: entity.SyncMetadata{
			AccountCount:     len(data.Accounts),
			TransactionCount: len(data.Transactions),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	synced, err := uc.sync.Execute(ctx, SyncBankDataInput{
		UserID:   pending.UserID,
		BankCode: info.Code,
	})
	if err != nil {
		return nil, fmt.Errorf("initial sync failed: %w", err)
	}

	slog.Info("Bank connection established",
		"userID", pending.UserID,
		"bankCode", info.Code,
		"accounts", synced.AccountsImported,
		"transactions", synced.TransactionsImported,
	)

	return &CompleteConnectionOutput{
		BankCode: info.Code,
		BankName: info.Name,
		Status:   synced.Status,
	}, nil
}
