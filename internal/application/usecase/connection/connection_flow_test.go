package connection

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

func seedCredential(userID uuid.UUID) adapter.StoreCredentialInput {
	return adapter.StoreCredentialInput{
		UserID:   userID,
		BankCode: "hsbc",
		BankName: "HSBC UK",
		Tokens:   freshBundle(),
	}
}

func flowRegistry() *fakeRegistry {
	bundle := freshBundle()
	return &fakeRegistry{
		adapter: &fakeBankAdapter{
			info:           entity.BankInfo{Code: "hsbc", Name: "HSBC UK"},
			authURL:        "https://bank.example.com/authorize?state=state-1",
			state:          "state-1",
			exchangeBundle: &bundle,
		},
		syncData: &adapter.AccountData{},
	}
}

// completeFixture builds the completion use case with in-memory repositories
// backing its initial sync.
func completeFixture(registry *fakeRegistry, stateStore *fakeStateStore, vault *fakeVault) (*CompleteConnectionUseCase, *fakeTransactionRepo) {
	txns := newFakeTransactionRepo()
	sync := NewSyncBankDataUseCase(registry, vault, newFakeAccountRepo(), txns, nil)
	return NewCompleteConnectionUseCase(registry, stateStore, vault, sync), txns
}

func TestInitiateConnectionUseCase_Execute(t *testing.T) {
	t.Run("should return the authorization url and store the pending state", func(t *testing.T) {
		registry := flowRegistry()
		stateStore := newFakeStateStore()
		useCase := NewInitiateConnectionUseCase(registry, stateStore)

		userID := uuid.New()
		output, err := useCase.Execute(context.Background(), InitiateConnectionInput{UserID: userID, BankCode: "hsbc"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.AuthorizationURL == "" || output.State != "state-1" {
			t.Errorf("unexpected output: %+v", output)
		}

		pending, ok := stateStore.states["state-1"]
		if !ok {
			t.Fatal("pending connection was not stored")
		}
		if pending.UserID != userID || pending.BankCode != "hsbc" {
			t.Errorf("unexpected pending connection: %+v", pending)
		}
	})

	t.Run("should reject an unsupported bank", func(t *testing.T) {
		useCase := NewInitiateConnectionUseCase(flowRegistry(), newFakeStateStore())

		_, err := useCase.Execute(context.Background(), InitiateConnectionInput{UserID: uuid.New(), BankCode: "monzo"})
		if !errors.Is(err, domainerror.ErrBankNotSupported) {
			t.Errorf("expected ErrBankNotSupported, got %v", err)
		}
	})
}

func TestCompleteConnectionUseCase_Execute(t *testing.T) {
	t.Run("should exchange the code and store an active connection", func(t *testing.T) {
		registry := flowRegistry()
		stateStore := newFakeStateStore()
		vault := newFakeVault()
		useCase, _ := completeFixture(registry, stateStore, vault)

		userID := uuid.New()
		initiate := NewInitiateConnectionUseCase(registry, stateStore)
		if _, err := initiate.Execute(context.Background(), InitiateConnectionInput{UserID: userID, BankCode: "hsbc"}); err != nil {
			t.Fatalf("initiate failed: %v", err)
		}

		output, err := useCase.Execute(context.Background(), CompleteConnectionInput{
			BankCode: "hsbc",
			Code:     "auth-code",
			State:    "state-1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.Status != entity.ConnectionStatusActive || output.BankName != "HSBC UK" {
			t.Errorf("unexpected output: %+v", output)
		}

		record, ok := vault.records[vaultKey(userID, "hsbc")]
		if !ok {
			t.Fatal("credential record was not stored")
		}
		if record.Tokens.AccessToken != "access-fresh" {
			t.Errorf("unexpected stored tokens: %+v", record.Tokens)
		}
	})

	t.Run("should import the bank's data as part of completing the connection", func(t *testing.T) {
		registry := flowRegistry()
		registry.syncData = &adapter.AccountData{
			Accounts:     []*entity.Account{bankAccount("acc-1", "Current Account")},
			Transactions: []*entity.Transaction{bankTransaction("txn-1", "acc-1", "-12.50")},
		}
		stateStore := newFakeStateStore()
		vault := newFakeVault()
		useCase, txns := completeFixture(registry, stateStore, vault)
		initiate := NewInitiateConnectionUseCase(registry, stateStore)

		userID := uuid.New()
		if _, err := initiate.Execute(context.Background(), InitiateConnectionInput{UserID: userID, BankCode: "hsbc"}); err != nil {
			t.Fatalf("initiate failed: %v", err)
		}
		output, err := useCase.Execute(context.Background(), CompleteConnectionInput{BankCode: "hsbc", Code: "auth-code", State: "state-1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.Status != entity.ConnectionStatusActive {
			t.Errorf("unexpected status: %v", output.Status)
		}
		if registry.adapter.testCalls == 0 {
			t.Error("tokens must be tested before they are stored")
		}
		if len(txns.transactions) != 1 {
			t.Fatalf("expected the completion to import the bank's transactions, got %d", len(txns.transactions))
		}
		record, ok := vault.records[vaultKey(userID, "hsbc")]
		if !ok {
			t.Fatal("credential record was not stored")
		}
		if record.Metadata.AccountCount != 1 || record.Metadata.TransactionCount != 1 {
			t.Errorf("unexpected sync metadata: %+v", record.Metadata)
		}
	})

	t.Run("should not store credentials when the exchanged tokens fail verification", func(t *testing.T) {
		registry := flowRegistry()
		registry.adapter.testErr = errors.New("access token rejected")
		stateStore := newFakeStateStore()
		vault := newFakeVault()
		useCase, _ := completeFixture(registry, stateStore, vault)
		initiate := NewInitiateConnectionUseCase(registry, stateStore)

		userID := uuid.New()
		if _, err := initiate.Execute(context.Background(), InitiateConnectionInput{UserID: userID, BankCode: "hsbc"}); err != nil {
			t.Fatalf("initiate failed: %v", err)
		}
		_, err := useCase.Execute(context.Background(), CompleteConnectionInput{BankCode: "hsbc", Code: "auth-code", State: "state-1"})
		if err == nil {
			t.Fatal("expected the completion to fail")
		}
		if _, ok := vault.records[vaultKey(userID, "hsbc")]; ok {
			t.Error("unverified credentials must not be stored")
		}
	})

	t.Run("should reject an unknown state", func(t *testing.T) {
		useCase, _ := completeFixture(flowRegistry(), newFakeStateStore(), newFakeVault())

		_, err := useCase.Execute(context.Background(), CompleteConnectionInput{BankCode: "hsbc", Code: "auth-code", State: "forged"})
		if !errors.Is(err, domainerror.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("should consume the state so it cannot be replayed", func(t *testing.T) {
		registry := flowRegistry()
		stateStore := newFakeStateStore()
		useCase, _ := completeFixture(registry, stateStore, newFakeVault())
		initiate := NewInitiateConnectionUseCase(registry, stateStore)

		if _, err := initiate.Execute(context.Background(), InitiateConnectionInput{UserID: uuid.New(), BankCode: "hsbc"}); err != nil {
			t.Fatalf("initiate failed: %v", err)
		}
		input := CompleteConnectionInput{BankCode: "hsbc", Code: "auth-code", State: "state-1"}
		if _, err := useCase.Execute(context.Background(), input); err != nil {
			t.Fatalf("first completion failed: %v", err)
		}
		if _, err := useCase.Execute(context.Background(), input); !errors.Is(err, domainerror.ErrInvalidState) {
			t.Errorf("replayed state must be rejected, got %v", err)
		}
	})

	t.Run("should reject a state initiated for a different bank", func(t *testing.T) {
		registry := flowRegistry()
		stateStore := newFakeStateStore()
		useCase, _ := completeFixture(registry, stateStore, newFakeVault())
		initiate := NewInitiateConnectionUseCase(registry, stateStore)

		if _, err := initiate.Execute(context.Background(), InitiateConnectionInput{UserID: uuid.New(), BankCode: "hsbc"}); err != nil {
			t.Fatalf("initiate failed: %v", err)
		}
		_, err := useCase.Execute(context.Background(), CompleteConnectionInput{BankCode: "barclays", Code: "auth-code", State: "state-1"})
		if !errors.Is(err, domainerror.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})
}

func TestDisconnectBankUseCase_Execute(t *testing.T) {
	seed := func(t *testing.T, vault *fakeVault) uuid.UUID {
		t.Helper()
		userID := uuid.New()
		if err := vault.Store(context.Background(), seedCredential(userID)); err != nil {
			t.Fatalf("failed to seed vault: %v", err)
		}
		return userID
	}

	t.Run("should revoke remotely and delete local credentials", func(t *testing.T) {
		registry := flowRegistry()
		vault := newFakeVault()
		userID := seed(t, vault)
		useCase := NewDisconnectBankUseCase(registry, vault)

		output, err := useCase.Execute(context.Background(), DisconnectBankInput{UserID: userID, BankCode: "hsbc"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !output.RemoteRevoked {
			t.Error("expected the remote revocation to be reported")
		}
		if registry.adapter.disconnected != 1 {
			t.Errorf("expected one revocation call, got %d", registry.adapter.disconnected)
		}
		if _, ok := vault.records[vaultKey(userID, "hsbc")]; ok {
			t.Error("local credentials must be deleted")
		}
	})

	t.Run("should still delete local credentials when revocation fails", func(t *testing.T) {
		registry := flowRegistry()
		registry.adapter.disconnectErr = errors.New("network down")
		vault := newFakeVault()
		userID := seed(t, vault)
		useCase := NewDisconnectBankUseCase(registry, vault)

		output, err := useCase.Execute(context.Background(), DisconnectBankInput{UserID: userID, BankCode: "hsbc"})
		if err != nil {
			t.Fatalf("revocation failure must not fail the disconnect: %v", err)
		}
		if output.RemoteRevoked {
			t.Error("remote revocation should be reported as failed")
		}
		if _, ok := vault.records[vaultKey(userID, "hsbc")]; ok {
			t.Error("local state must converge to disconnected")
		}
	})

	t.Run("should fail for a connection that does not exist", func(t *testing.T) {
		useCase := NewDisconnectBankUseCase(flowRegistry(), newFakeVault())

		_, err := useCase.Execute(context.Background(), DisconnectBankInput{UserID: uuid.New(), BankCode: "hsbc"})
		if !errors.Is(err, domainerror.ErrCredentialsNotFound) {
			t.Errorf("expected ErrCredentialsNotFound, got %v", err)
		}
	})
}

func TestGetConnectionStatusesUseCase_Execute(t *testing.T) {
	vault := newFakeVault()
	userID := uuid.New()
	if err := vault.Store(context.Background(), seedCredential(userID)); err != nil {
		t.Fatalf("failed to seed vault: %v", err)
	}

	useCase := NewGetConnectionStatusesUseCase(vault)
	output, err := useCase.Execute(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Connections) != 1 {
		t.Fatalf("expected one connection, got %d", len(output.Connections))
	}
	conn := output.Connections[0]
	if conn.BankCode != "hsbc" || conn.Status != entity.ConnectionStatusActive {
		t.Errorf("unexpected connection: %+v", conn)
	}

	other, err := useCase.Execute(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other.Connections) != 0 {
		t.Error("another user's connections must not be visible")
	}
}
