package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

// SyncBankDataInput represents the input for a single-bank synchronization.
type SyncBankDataInput struct {
	UserID   uuid.UUID
	BankCode string
}

// SyncBankDataOutput reports what one sync imported. Partial success is
// success: imported counts plus itemized errors is a valid terminal state.
type SyncBankDataOutput struct {
	BankCode             string
	AccountsImported     int
	TransactionsImported int
	TransactionsSkipped  int
	Errors               []string
	Status               entity.ConnectionStatus
}

// SyncBankDataUseCase performs the recurring synchronization for one (user,
// bank) connection: token freshness, data fetch, account upsert, transaction
// de-dup insert and status bookkeeping.
type SyncBankDataUseCase struct {
	registry        adapter.BankRegistry
	vault           adapter.CredentialVault
	accountRepo     adapter.AccountRepository
	transactionRepo adapter.TransactionRepository
	notifier        adapter.ConnectionNotifier
	refreshLocks    *keyedMutex
	now             func() time.Time
}

// NewSyncBankDataUseCase creates a new SyncBankDataUseCase instance.
func NewSyncBankDataUseCase(
	registry adapter.BankRegistry,
	vault adapter.CredentialVault,
	accountRepo adapter.AccountRepository,
	transactionRepo adapter.TransactionRepository,
	notifier adapter.ConnectionNotifier,
) *SyncBankDataUseCase {
	return &SyncBankDataUseCase{
		registry:        registry,
		vault:           vault,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		notifier:        notifier,
		refreshLocks:    newKeyedMutex(),
		now:             time.Now,
	}
}

// Execute performs the sync. Missing credentials are a terminal failure for
// this call; a failed token refresh transitions the connection to expired and
// aborts; a data fetch never happens with an expired token.
func (uc *SyncBankDataUseCase) Execute(ctx context.Context, input SyncBankDataInput) (*SyncBankDataOutput, error) {
	// Serializes refresh per (user, bank): the loser of a race re-reads the
	// credentials the winner persisted.
	unlock := uc.refreshLocks.Lock(input.UserID.String() + "|" + input.BankCode)
	defer unlock()

	credential, err := uc.vault.Retrieve(ctx, input.UserID, input.BankCode)
	if err != nil {
		return nil, err
	}

	tokens, err := uc.freshTokens(ctx, input, credential.Record)
	if err != nil {
		return nil, err
	}

	data, err := uc.registry.SyncAccountData(ctx, input.BankCode, tokens.AccessToken)
	if err != nil {
		uc.markDegraded(ctx, input, credential.Record.BankName, entity.ConnectionStatusError, err.Error())
		return nil, err
	}

	output := &SyncBankDataOutput{BankCode: input.BankCode, Status: entity.ConnectionStatusActive}
	for _, syncErr := range data.Errors {
		output.Errors = append(output.Errors, fmt.Sprintf("account %s: %s", syncErr.AccountExternalID, syncErr.Message))
	}

	accountIDs := uc.importAccounts(ctx, input.UserID, data.Accounts, output)
	lastBalance := uc.importTransactions(ctx, input.UserID, data.Transactions, accountIDs, output)

	metadata := &entity.SyncMetadata{
		AccountCount:     output.AccountsImported,
		TransactionCount: output.TransactionsImported,
		LastBalance:      lastBalance,
	}
	if err := uc.vault.UpdateConnectionStatus(ctx, input.UserID, input.BankCode, entity.ConnectionStatusActive, "", metadata); err != nil {
		return nil, fmt.Errorf("failed to update connection status: %w", err)
	}

	slog.Info("Bank sync completed",
		"userID", input.UserID,
		"bankCode", input.BankCode,
		"accounts", output.AccountsImported,
		"transactions", output.TransactionsImported,
		"skipped", output.TransactionsSkipped,
		"errors", len(output.Errors),
	)
	return output, nil
}

// freshTokens returns a bundle safe to send: stale bundles are refreshed and
// persisted first, and an expired bundle that cannot be refreshed moves the
// connection to expired without any data fetch being attempted.
func (uc *SyncBankDataUseCase) freshTokens(ctx context.Context, input SyncBankDataInput, record *entity.CredentialRecord) (*entity.AuthTokenBundle, error) {
	tokens := record.Tokens
	now := uc.now().UTC()

	if tokens.IsStale(now) && tokens.RefreshToken != "" {
		bankAdapter, err := uc.registry.Get(input.BankCode)
		if err != nil {
			return nil, err
		}

		refreshed, err := bankAdapter.RefreshToken(ctx, tokens.RefreshToken)
		if err != nil {
			uc.markDegraded(ctx, input, record.BankName, entity.ConnectionStatusExpired, "token refresh failed: "+err.Error())
			return nil, domainerror.NewBankingError(
				domainerror.ErrCodeTokenExpired,
				fmt.Sprintf("token refresh failed for bank %s, reauthorization required", input.BankCode),
				errors.Join(domainerror.ErrTokenExpired, err),
			)
		}
		if err := uc.vault.UpdateCredentials(ctx, input.UserID, input.BankCode, *refreshed); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
		}
		return refreshed, nil
	}

	if tokens.IsExpired(now) {
		uc.markDegraded(ctx, input, record.BankName, entity.ConnectionStatusExpired, "access token expired and no refresh token is available")
		return nil, domainerror.NewBankingError(
			domainerror.ErrCodeTokenExpired,
			fmt.Sprintf("token expired for bank %s, reauthorization required", input.BankCode),
			domainerror.ErrTokenExpired,
		)
	}
	return &tokens, nil
}

// importAccounts upserts the fetched accounts and returns the mapping from
// bank-side account id to stored account id. Per-account failures are
// itemized, not fatal.
func (uc *SyncBankDataUseCase) importAccounts(ctx context.Context, userID uuid.UUID, accounts []*entity.Account, output *SyncBankDataOutput) map[string]uuid.UUID {
	accountIDs := make(map[string]uuid.UUID, len(accounts))
	for _, account := range accounts {
		account.UserID = userID

		persisted, _, err := uc.accountRepo.Upsert(ctx, account)
		if err != nil {
			output.Errors = append(output.Errors, fmt.Sprintf("account %s: %s", account.ExternalID, err.Error()))
			continue
		}
		accountIDs[persisted.ExternalID] = persisted.ID
		output.AccountsImported++
	}
	return accountIDs
}

// importTransactions inserts fetched transactions, skipping any whose
// external id is already stored. Returns the last observed running balance.
func (uc *SyncBankDataUseCase) importTransactions(ctx context.Context, userID uuid.UUID, transactions []*entity.Transaction, accountIDs map[string]uuid.UUID, output *SyncBankDataOutput) string {
	lastBalance := ""
	for _, txn := range transactions {
		accountID, ok := accountIDs[txn.ExternalAccountID]
		if !ok {
			output.Errors = append(output.Errors, fmt.Sprintf("transaction %s: unknown account %s", txn.ExternalID, txn.ExternalAccountID))
			continue
		}

		exists, err := uc.transactionRepo.ExistsByExternalID(ctx, userID, txn.ExternalID)
		if err != nil {
			output.Errors = append(output.Errors, fmt.Sprintf("transaction %s: %s", txn.ExternalID, err.Error()))
			continue
		}
		if exists {
			output.TransactionsSkipped++
			continue
		}

		if txn.ID == uuid.Nil {
			txn.ID = uuid.New()
		}
		txn.UserID = userID
		txn.AccountID = accountID
		now := uc.now().UTC()
		txn.CreatedAt = now
		txn.UpdatedAt = now

		if err := uc.transactionRepo.Create(ctx, txn); err != nil {
			output.Errors = append(output.Errors, fmt.Sprintf("transaction %s: %s", txn.ExternalID, err.Error()))
			continue
		}
		output.TransactionsImported++
		if txn.BalanceAfter != nil {
			lastBalance = txn.BalanceAfter.String()
		}
	}
	return lastBalance
}

// markDegraded records a degraded status and raises a best-effort alert.
// Alert delivery failure never fails the sync that raised it.
func (uc *SyncBankDataUseCase) markDegraded(ctx context.Context, input SyncBankDataInput, bankName string, status entity.ConnectionStatus, message string) {
	if err := uc.vault.UpdateConnectionStatus(ctx, input.UserID, input.BankCode, status, message, nil); err != nil {
		slog.Error("Failed to record degraded connection status",
			"userID", input.UserID,
			"bankCode", input.BankCode,
			"error", err,
		)
	}

	if uc.notifier == nil {
		return
	}
	alert := adapter.ConnectionAlert{
		UserID:   input.UserID,
		BankCode: input.BankCode,
		BankName: bankName,
		Status:   string(status),
		Message:  message,
	}
	if err := uc.notifier.NotifyConnectionDegraded(ctx, alert); err != nil {
		slog.Warn("Failed to deliver connection alert",
			"userID", input.UserID,
			"bankCode", input.BankCode,
			"error", err,
		)
	}
}
