package adapter

import (
	"context"
	"time"

	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// TransactionQuery bounds a transaction fetch against one account.
type TransactionQuery struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// BankAdapter is the per-bank implementation of the banking protocol: the
// OAuth2 connection flow plus the account-information read operations. The
// registry holds one instance per bank code behind this interface so non
// Open-Banking adapters can be added without touching the connection manager.
type BankAdapter interface {
	// Info returns the secret-free identity of this adapter.
	Info() entity.BankInfo

	// Authenticate builds the authorization URL the user must be redirected
	// to, along with the unguessable CSRF state embedded in it.
	Authenticate() (authorizationURL string, state string, err error)

	// ExchangeCode exchanges an authorization code for a token bundle,
	// stamped with the instant it was obtained.
	ExchangeCode(ctx context.Context, code string) (*entity.AuthTokenBundle, error)

	// RefreshToken exchanges a refresh token for a fresh bundle. The prior
	// refresh token is preserved when the bank omits a new one.
	RefreshToken(ctx context.Context, refreshToken string) (*entity.AuthTokenBundle, error)

	// GetAccounts fetches all accounts visible to the token.
	GetAccounts(ctx context.Context, accessToken string) ([]*entity.Account, error)

	// GetAccountBalances fetches the current balances of one account.
	GetAccountBalances(ctx context.Context, accessToken, accountID string) ([]*entity.Balance, error)

	// GetTransactions fetches transactions for one account within the query bounds.
	GetTransactions(ctx context.Context, accessToken, accountID string, query TransactionQuery) ([]*entity.Transaction, error)

	// TestConnection confirms the token is still valid without mutating anything.
	TestConnection(ctx context.Context, accessToken string) error

	// Disconnect best-effort revokes the token at the bank. Failure must not
	// block local credential deletion.
	Disconnect(ctx context.Context, accessToken string) error
}

// AccountSyncError records a per-account transaction fetch failure inside an
// otherwise successful aggregate sync.
type AccountSyncError struct {
	AccountExternalID string
	Message           string
}

// AccountData is the aggregate of one full bank read: all accounts, their
// flattened transactions, and the per-account failures that occurred.
type AccountData struct {
	Accounts     []*entity.Account
	Transactions []*entity.Transaction
	Errors       []AccountSyncError
}

// BankRegistry dispatches bank-agnostic operations to the adapter registered
// for a bank code.
type BankRegistry interface {
	// Register constructs and stores an adapter for the config's bank code,
	// replacing any previous registration for that code.
	Register(config entity.ConnectionConfig)

	// Get returns the adapter for a bank code.
	Get(bankCode string) (BankAdapter, error)

	// List returns the registered banks without secrets.
	List() []entity.BankInfo

	// SyncAccountData fetches all accounts for the token plus their recent
	// transactions, surfacing per-account failures without aborting the rest.
	SyncAccountData(ctx context.Context, bankCode, accessToken string) (*AccountData, error)
}
