package connection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

// fakeBankAdapter is a scriptable in-memory adapter.BankAdapter.
type fakeBankAdapter struct {
	info           entity.BankInfo
	authURL        string
	state          string
	exchangeBundle *entity.AuthTokenBundle
	exchangeErr    error
	refreshBundle  *entity.AuthTokenBundle
	refreshErr     error
	refreshCalls   int
	testErr        error
	testCalls      int
	disconnectErr  error
	disconnected   int
}

func (f *fakeBankAdapter) Info() entity.BankInfo { return f.info }

func (f *fakeBankAdapter) Authenticate() (string, string, error) {
	return f.authURL, f.state, nil
}

func (f *fakeBankAdapter) ExchangeCode(ctx context.Context, code string) (*entity.AuthTokenBundle, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeBundle, nil
}

func (f *fakeBankAdapter) RefreshToken(ctx context.Context, refreshToken string) (*entity.AuthTokenBundle, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshBundle, nil
}

func (f *fakeBankAdapter) GetAccounts(ctx context.Context, accessToken string) ([]*entity.Account, error) {
	return nil, nil
}

func (f *fakeBankAdapter) GetAccountBalances(ctx context.Context, accessToken, accountID string) ([]*entity.Balance, error) {
	return nil, nil
}

func (f *fakeBankAdapter) GetTransactions(ctx context.Context, accessToken, accountID string, query adapter.TransactionQuery) ([]*entity.Transaction, error) {
	return nil, nil
}

func (f *fakeBankAdapter) TestConnection(ctx context.Context, accessToken string) error {
	f.testCalls++
	return f.testErr
}

func (f *fakeBankAdapter) Disconnect(ctx context.Context, accessToken string) error {
	f.disconnected++
	return f.disconnectErr
}

// fakeRegistry serves one scripted adapter and a scripted sync result.
type fakeRegistry struct {
	adapter         *fakeBankAdapter
	syncData        *adapter.AccountData
	syncErr         error
	syncCalls       int
	lastAccessToken string
}

func (f *fakeRegistry) Register(config entity.ConnectionConfig) {}

func (f *fakeRegistry) Get(bankCode string) (adapter.BankAdapter, error) {
	if f.adapter == nil || f.adapter.info.Code != bankCode {
		return nil, domainerror.ErrBankNotSupported
	}
	return f.adapter, nil
}

func (f *fakeRegistry) List() []entity.BankInfo {
	if f.adapter == nil {
		return nil
	}
	return []entity.BankInfo{f.adapter.info}
}

func (f *fakeRegistry) SyncAccountData(ctx context.Context, bankCode, accessToken string) (*adapter.AccountData, error) {
	f.syncCalls++
	f.lastAccessToken = accessToken
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return f.syncData, nil
}

// fakeVault is an in-memory adapter.CredentialVault keyed by (user, bank).
type fakeVault struct {
	records     map[string]*entity.CredentialRecord
	retrieveErr error
}

func newFakeVault() *fakeVault {
	return &fakeVault{records: make(map[string]*entity.CredentialRecord)}
}

func vaultKey(userID uuid.UUID, bankCode string) string {
	return userID.String() + "|" + bankCode
}

func (f *fakeVault) Store(ctx context.Context, input adapter.StoreCredentialInput) error {
	f.records[vaultKey(input.UserID, input.BankCode)] = &entity.CredentialRecord{
		UserID:    input.UserID,
		BankCode:  input.BankCode,
		BankName:  input.BankName,
		Tokens:    input.Tokens,
		Status:    entity.ConnectionStatusActive,
		Metadata:  input.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (f *fakeVault) Retrieve(ctx context.Context, userID uuid.UUID, bankCode string) (*adapter.RetrievedCredential, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	record, ok := f.records[vaultKey(userID, bankCode)]
	if !ok {
		return nil, domainerror.ErrCredentialsNotFound
	}
	return &adapter.RetrievedCredential{Record: record, ExpiresAt: record.Tokens.ExpiresAt()}, nil
}

func (f *fakeVault) UpdateCredentials(ctx context.Context, userID uuid.UUID, bankCode string, tokens entity.AuthTokenBundle) error {
	record, ok := f.records[vaultKey(userID, bankCode)]
	if !ok {
		return domainerror.ErrCredentialsNotFound
	}
	record.Tokens = tokens
	return nil
}

func (f *fakeVault) UpdateConnectionStatus(ctx context.Context, userID uuid.UUID, bankCode string, status entity.ConnectionStatus, errorMessage string, metadata *entity.SyncMetadata) error {
	record, ok := f.records[vaultKey(userID, bankCode)]
	if !ok {
		return domainerror.ErrCredentialsNotFound
	}
	record.Status = status
	record.LastError = errorMessage
	if metadata != nil {
		record.Metadata = *metadata
	}
	now := time.Now().UTC()
	record.LastSyncAt = &now
	return nil
}

func (f *fakeVault) ListConnections(ctx context.Context, userID uuid.UUID) ([]*entity.CredentialRecord, error) {
	var records []*entity.CredentialRecord
	for _, record := range f.records {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (f *fakeVault) Revoke(ctx context.Context, userID uuid.UUID, bankCode string) error {
	delete(f.records, vaultKey(userID, bankCode))
	return nil
}

// fakeAccountRepo is an in-memory adapter.AccountRepository.
type fakeAccountRepo struct {
	accounts  map[uuid.UUID]*entity.Account
	upsertErr error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*entity.Account)}
}

func (f *fakeAccountRepo) Upsert(ctx context.Context, account *entity.Account) (*entity.Account, bool, error) {
	if f.upsertErr != nil {
		return nil, false, f.upsertErr
	}
	for _, existing := range f.accounts {
		if existing.UserID == account.UserID && existing.Institution == account.Institution && existing.Name == account.Name {
			existing.ExternalID = account.ExternalID
			existing.Currency = account.Currency
			return existing, false, nil
		}
	}
	stored := *account
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	f.accounts[stored.ID] = &stored
	return &stored, true, nil
}

func (f *fakeAccountRepo) FindByIDAndUser(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*entity.Account, error) {
	account, ok := f.accounts[id]
	if !ok || account.UserID != userID {
		return nil, errors.New("record not found")
	}
	return account, nil
}

func (f *fakeAccountRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Account, error) {
	var accounts []*entity.Account
	for _, account := range f.accounts {
		if account.UserID == userID {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

// fakeTransactionRepo is an in-memory adapter.TransactionRepository.
type fakeTransactionRepo struct {
	transactions map[string]*entity.Transaction // keyed by userID|externalID
	createErr    error
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{transactions: make(map[string]*entity.Transaction)}
}

func (f *fakeTransactionRepo) Create(ctx context.Context, transaction *entity.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.transactions[transaction.UserID.String()+"|"+transaction.ExternalID] = transaction
	return nil
}

func (f *fakeTransactionRepo) ExistsByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (bool, error) {
	_, ok := f.transactions[userID.String()+"|"+externalID]
	return ok, nil
}

func (f *fakeTransactionRepo) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	for _, txn := range f.transactions {
		if txn.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (f *fakeTransactionRepo) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*entity.Transaction, error) {
	var transactions []*entity.Transaction
	for _, txn := range f.transactions {
		if txn.AccountID == accountID {
			transactions = append(transactions, txn)
		}
	}
	return transactions, nil
}

// fakeStateStore is an in-memory adapter.StateStore.
type fakeStateStore struct {
	states map[string]adapter.PendingConnection
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]adapter.PendingConnection)}
}

func (f *fakeStateStore) Put(ctx context.Context, state string, pending adapter.PendingConnection) error {
	f.states[state] = pending
	return nil
}

func (f *fakeStateStore) Take(ctx context.Context, state string) (*adapter.PendingConnection, error) {
	pending, ok := f.states[state]
	if !ok {
		return nil, domainerror.ErrInvalidState
	}
	delete(f.states, state)
	return &pending, nil
}

// fakeNotifier records degradation alerts.
type fakeNotifier struct {
	alerts []adapter.ConnectionAlert
	err    error
}

func (f *fakeNotifier) NotifyConnectionDegraded(ctx context.Context, alert adapter.ConnectionAlert) error {
	f.alerts = append(f.alerts, alert)
	return f.err
}

// freshBundle returns a bundle valid for an hour.
func freshBundle() entity.AuthTokenBundle {
	return entity.AuthTokenBundle{
		AccessToken:  "access-fresh",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		ExpiresIn:    time.Hour,
		ObtainedAt:   time.Now().UTC(),
	}
}

// staleBundle returns a bundle inside the refresh window but not yet expired.
func staleBundle() entity.AuthTokenBundle {
	bundle := freshBundle()
	bundle.AccessToken = "access-stale"
	bundle.ObtainedAt = time.Now().UTC().Add(-time.Hour + 2*time.Minute)
	return bundle
}

// expiredBundle returns a bundle past its absolute expiry.
func expiredBundle() entity.AuthTokenBundle {
	bundle := freshBundle()
	bundle.AccessToken = "access-expired"
	bundle.ObtainedAt = time.Now().UTC().Add(-2 * time.Hour)
	return bundle
}
