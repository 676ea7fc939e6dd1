package banking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

const (
	// syncWindowDays bounds how far back an aggregate sync reaches.
	syncWindowDays = 90
	// maxTransactionsPerAccount bounds one account's fetch in an aggregate sync.
	maxTransactionsPerAccount = 1000
)

// Registry holds one configured adapter per supported bank code and exposes
// bank-agnostic operations that dispatch to the right adapter. The adapter
// map is written only at registration time and read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	adapters  map[string]adapter.BankAdapter
	clientCfg ClientConfig
	limiter   *SlidingWindowLimiter
}

// NewRegistry creates a registry whose adapters share one protocol client
// configuration and one explicitly owned rate limiter (keyed per bank).
func NewRegistry(clientCfg ClientConfig, limiter *SlidingWindowLimiter) *Registry {
	return &Registry{
		adapters:  make(map[string]adapter.BankAdapter),
		clientCfg: clientCfg,
		limiter:   limiter,
	}
}

// Register constructs an Open-Banking adapter for the config's bank code and
// stores it. Re-registering a code replaces the adapter.
func (r *Registry) Register(config entity.ConnectionConfig) {
	client := NewClientWithLimiter(r.clientCfg, r.limiter)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[config.BankCode] = NewOpenBankingAdapter(config, client)

	slog.Info("Bank adapter registered",
		"bankCode", config.BankCode,
		"bankName", config.DisplayName,
		"production", config.Production,
	)
}

// Get returns the adapter for a bank code.
func (r *Registry) Get(bankCode string) (adapter.BankAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bankAdapter, ok := r.adapters[bankCode]
	if !ok {
		return nil, domainerror.NewBankingError(
			domainerror.ErrCodeBankNotSupported,
			fmt.Sprintf("no adapter registered for bank %q", bankCode),
			domainerror.ErrBankNotSupported,
		)
	}
	return bankAdapter, nil
}

// List returns the registered banks without secrets, sorted by code.
func (r *Registry) List() []entity.BankInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	banks := make([]entity.BankInfo, 0, len(r.adapters))
	for _, bankAdapter := range r.adapters {
		banks = append(banks, bankAdapter.Info())
	}
	sort.Slice(banks, func(i, j int) bool { return banks[i].Code < banks[j].Code })
	return banks
}

// SyncAccountData fetches all accounts for the token, then sequentially each
// account's last 90 days of transactions (bounded per account), flattening
// the result. A failure fetching one account's transactions is surfaced in
// the result's error list without aborting the other accounts.
func (r *Registry) SyncAccountData(ctx context.Context, bankCode, accessToken string) (*adapter.AccountData, error) {
	bankAdapter, err := r.Get(bankCode)
	if err != nil {
		return nil, err
	}

	accounts, err := bankAdapter.GetAccounts(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -syncWindowDays)
	query := adapter.TransactionQuery{
		From:  &from,
		To:    &now,
		Limit: maxTransactionsPerAccount,
	}

	data := &adapter.AccountData{Accounts: accounts}
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return nil, domainerror.NewBankingError(domainerror.ErrCodeRequestFailed, "sync canceled", err)
		}

		transactions, err := bankAdapter.GetTransactions(ctx, accessToken, account.ExternalID, query)
		if err != nil {
			slog.Warn("Transaction fetch failed for account",
				"bankCode", bankCode,
				"accountID", account.ExternalID,
				"error", err,
			)
			data.Errors = append(data.Errors, adapter.AccountSyncError{
				AccountExternalID: account.ExternalID,
				Message:           err.Error(),
			})
			continue
		}

		for _, txn := range transactions {
			if txn.ExternalAccountID == "" {
				txn.ExternalAccountID = account.ExternalID
			}
		}
		data.Transactions = append(data.Transactions, transactions...)
	}

	return data, nil
}

// Ensure the registry satisfies the interface.
var _ adapter.BankRegistry = (*Registry)(nil)
