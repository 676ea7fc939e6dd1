package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/persistence/model"
)

// registerBankingSteps registers steps that script the fake bank API and seed
// or inspect stored state.
func registerBankingSteps(ctx *godog.ScenarioContext) {
	ctx.Step(`^the bank responds to "([^"]*)" "([^"]*)" with status (\d+) and JSON:$`, theBankRespondsWith)
	ctx.Step(`^I have an active connection to "([^"]*)"$`, iHaveAnActiveConnectionTo)
	ctx.Step(`^my connection to "([^"]*)" holds an expired token without a refresh token$`, myConnectionHoldsAnExpiredToken)
	ctx.Step(`^an account named "([^"]*)" exists$`, anAccountNamedExists)
	ctx.Step(`^(\d+) transactions should be stored$`, transactionsShouldBeStored)
	ctx.Step(`^(\d+) accounts should be stored$`, accountsShouldBeStored)
	ctx.Step(`^no credentials should be stored for "([^"]*)"$`, noCredentialsShouldBeStoredFor)
	ctx.Step(`^the stored connection to "([^"]*)" should have status "([^"]*)"$`, theStoredConnectionShouldHaveStatus)
	ctx.Step(`^the bank should have received a "([^"]*)" request to "([^"]*)"$`, theBankShouldHaveReceived)
}

func theBankRespondsWith(ctx context.Context, method, path string, status int, body *godog.DocString) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	var response map[string]any
	if err := json.Unmarshal([]byte(body.Content), &response); err != nil {
		return fmt.Errorf("scripted bank response is not valid JSON: %w", err)
	}
	tc.bankAPI.SetResponse(-1, method, path, status, response)
	return nil
}

func (tc *TestContext) storeConnection(ctx context.Context, bankCode string, tokens entity.AuthTokenBundle) error {
	return tc.vault.Store(ctx, adapter.StoreCredentialInput{
		UserID:   testUserID,
		BankCode: bankCode,
		BankName: "HSBC UK",
		Tokens:   tokens,
		Scopes:   []string{"accounts", "transactions"},
	})
}

func iHaveAnActiveConnectionTo(ctx context.Context, bankCode string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	return tc.storeConnection(ctx, bankCode, entity.AuthTokenBundle{
		AccessToken:  "sandbox-access-token",
		RefreshToken: "sandbox-refresh-token",
		TokenType:    "Bearer",
		ExpiresIn:    time.Hour,
		ObtainedAt:   time.Now().UTC(),
	})
}

func myConnectionHoldsAnExpiredToken(ctx context.Context, bankCode string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	return tc.storeConnection(ctx, bankCode, entity.AuthTokenBundle{
		AccessToken: "stale-access-token",
		TokenType:   "Bearer",
		ExpiresIn:   time.Hour,
		ObtainedAt:  time.Now().UTC().Add(-2 * time.Hour),
	})
}

func anAccountNamedExists(ctx context.Context, name string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	account := entity.NewAccount(testUserID, "csv", "", name, "GBP", "checking", "")
	stored, _, err := tc.accountRepo.Upsert(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to seed account: %w", err)
	}
	tc.vars["ACCOUNT_ID"] = stored.ID.String()
	return nil
}

func transactionsShouldBeStored(ctx context.Context, expected int) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	var count int64
	if err := tc.db.DbConn.Model(&model.TransactionModel{}).
		Where("user_id = ?", testUserID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count transactions: %w", err)
	}
	if count != int64(expected) {
		return fmt.Errorf("expected %d stored transactions, got %d", expected, count)
	}
	return nil
}

func accountsShouldBeStored(ctx context.Context, expected int) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	var count int64
	if err := tc.db.DbConn.Model(&model.AccountModel{}).
		Where("user_id = ?", testUserID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count accounts: %w", err)
	}
	if count != int64(expected) {
		return fmt.Errorf("expected %d stored accounts, got %d", expected, count)
	}
	return nil
}

func noCredentialsShouldBeStoredFor(ctx context.Context, bankCode string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	var count int64
	if err := tc.db.DbConn.Model(&model.CredentialModel{}).
		Where("user_id = ? AND bank_code = ?", testUserID, bankCode).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count credentials: %w", err)
	}
	if count != 0 {
		return fmt.Errorf("expected no stored credentials for %s, got %d", bankCode, count)
	}
	return nil
}

func theStoredConnectionShouldHaveStatus(ctx context.Context, bankCode, expected string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	var credential model.CredentialModel
	if err := tc.db.DbConn.
		Where("user_id = ? AND bank_code = ?", testUserID, bankCode).
		First(&credential).Error; err != nil {
		return fmt.Errorf("failed to load credential record: %w", err)
	}
	if credential.Status != expected {
		return fmt.Errorf("expected connection status %q, got %q", expected, credential.Status)
	}
	return nil
}

func theBankShouldHaveReceived(ctx context.Context, method, path string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	if tc.bankAPI.GetRequestHeaders(method, path, 0) == nil {
		return fmt.Errorf("bank did not receive a %s request to %s", method, path)
	}
	return nil
}
